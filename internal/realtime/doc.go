// Package realtime serves plan requests over socket.io.
//
// A client emits a "plan" event carrying a plan request object. The server
// answers on the same socket with "plan:result" and the plan response, or
// with "plan:error" and an {"error": message} object when the request is
// rejected. RequestPlan is the matching client.
package realtime
