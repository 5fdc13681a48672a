// Package webchat serves a browser chat front-end over the relay service.
//
// Routes:
//   - POST /api/chat     send one message, answer with the normalized reply
//   - GET  /api/status   probe the endpoint for the requested mode
//   - GET  /api/workflows list workflows from the n8n API
//   - GET  /ws           websocket carrying send/status frames
//   - GET  /             embedded static UI
//
// The package keeps no transcript; every reply is handed straight back to the
// client that asked.
package webchat
