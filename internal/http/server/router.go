// Package server assembles the route table.
package server

import (
	"net/http"

	"github.com/aanand-mishra/students-api/internal/auth"
	"github.com/aanand-mishra/students-api/internal/csrf"
	"github.com/aanand-mishra/students-api/internal/http/handlers/account"
	"github.com/aanand-mishra/students-api/internal/http/handlers/student"
	"github.com/aanand-mishra/students-api/internal/session"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/storage/students"
	"github.com/aanand-mishra/students-api/internal/storage/users"
)

// Deps are the collaborators the routes need. The pool and the session
// manager are owned by the caller.
type Deps struct {
	Pool     *storage.Provider
	Sessions *session.Manager
}

// NewRouter returns the application handler.
//
// Route table:
//
//	GET  /api/students        list students (limit, offset)   public
//	GET  /api/students/{id}   one student                     public
//	POST /api/students        create a student                admin, csrf
//	POST /api/login           start a session                 csrf
//	POST /api/logout          end a session                   csrf
//	GET  /api/context         csrf token and current user     public
//	GET  /api/me              current user                    logged in
func NewRouter(d Deps) http.Handler {
	studentRepo := students.New(d.Pool.Dialect())
	userRepo := users.New(d.Pool.Dialect())
	gate := auth.NewGate(d.Pool, userRepo)

	admin := gate.Require(auth.Requirement{RequireAdmin: true})
	member := gate.Require(auth.Requirement{})

	router := http.NewServeMux()

	router.HandleFunc("GET /api/students", student.GetList(d.Pool, studentRepo))
	router.HandleFunc("GET /api/students/{id}", student.GetByID(d.Pool, studentRepo))
	router.Handle("POST /api/students", admin(csrf.Protect(student.New(d.Pool, studentRepo))))

	router.Handle("POST /api/login", csrf.Protect(account.Login(d.Pool, userRepo)))
	router.Handle("POST /api/logout", csrf.Protect(account.Logout()))
	router.HandleFunc("GET /api/context", account.Context(gate))
	router.Handle("GET /api/me", member(account.Me()))

	return d.Sessions.Middleware(router)
}
