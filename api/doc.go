// Package api provides the HTTP REST API for the Chatty backend.
//
// The api package implements:
//   - CRUD endpoints for users, chatrooms, messages, and participants
//   - Real-time fan-out of created messages to websocket subscribers
//   - Health and metrics endpoints
//   - The websocket upgrade route (handled by the transport layer)
//
// Endpoints:
//
// Users:
//   - POST /users - Create a user
//   - GET /users - List users
//   - GET /users/{id} - Get a user
//   - PUT /users/{id} - Update a user's handle
//   - DELETE /users/{id} - Delete a user
//   - GET /users/{id}/chatrooms - List the chatrooms a user participates in
//
// Chatrooms:
//   - POST /chatrooms - Create a chatroom
//   - GET /chatrooms - List chatrooms
//   - GET /chatrooms/{id} - Get a chatroom
//   - PUT /chatrooms/{id} - Rename a chatroom
//   - DELETE /chatrooms/{id} - Delete a chatroom
//   - GET /chatrooms/{id}/users - List the users enrolled in a chatroom
//
// Messages:
//   - POST /messages - Create a message (also fans out new_message over /ws)
//   - GET /messages/{id} - Get a message
//   - GET /messages/chatroom/{chatroom_id} - List a chatroom's messages
//   - DELETE /messages/{id} - Delete a message
//
// Participants:
//   - POST /chatroom-participants - Enroll a user in a chatroom
//   - DELETE /chatroom-participants - Remove an enrollment by (user, chatroom)
//   - DELETE /chatroom-participants/{id} - Remove an enrollment by its ID
//   - GET /chatroom-participants/chatroom/{chatroom_id} - List enrollments
//
// Meta:
//   - GET / - Welcome banner
//   - GET /health - Liveness probe
//   - GET /metrics - Prometheus metrics (when enabled)
//   - GET /ws - WebSocket upgrade
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{"error": "message text"}
//
// Validation failures map to 400, missing entities to 404, and uniqueness
// conflicts to 409.
package api
