// Package api serves the planner over HTTP with JSON bodies.
//
// Routes:
//
//	GET    /health
//	GET    /metrics
//	GET    /api/graph?program=
//	POST   /api/plan
//	GET    /api/courses?program=
//	GET    /api/courses/{code}?program=&completed=
//	POST   /api/courses/reload
//	GET    /api/programs
//	GET    /api/users/{id}
//	PUT    /api/users/{id}
//	POST   /api/users/{id}/plan?max_credits=&program=
//	GET    /api/users/{id}/history?program=
//	POST   /api/users/{id}/history
//	PUT    /api/users/{id}/history/{code}?program=
//	DELETE /api/users/{id}/history/{code}?program=
//
// Every response carries an X-Request-ID header. A request ID sent by the
// client is kept, otherwise a new UUID is issued.
package api
