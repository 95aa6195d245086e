package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"capitalapi/internal/handlers"
	"capitalapi/internal/middleware"
)

func SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORS)

	r.HandleFunc("/health", handlers.Health).Methods("GET")

	// Auth routes (public)
	r.HandleFunc("/register", handlers.Register).Methods("POST")
	r.HandleFunc("/login", handlers.Login).Methods("POST")
	r.HandleFunc("/refresh", handlers.RefreshToken).Methods("POST")

	// Protected routes (require Authorization: Bearer <access_token>)
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.JWTMiddleware)

	protected.HandleFunc("/logout", handlers.Logout).Methods("POST")
	protected.HandleFunc("/user/password", handlers.ModifyMyPassword).Methods("PUT")
	protected.HandleFunc("/user/account", handlers.DeleteMyAccount).Methods("DELETE")

	protected.HandleFunc("/organizations", handlers.MyOrganizations).Methods("GET")
	protected.HandleFunc("/organizations/affiliated", handlers.AffiliatedOrganizations).Methods("GET")
	protected.HandleFunc("/organizations", handlers.CreateOrganization).Methods("POST")
	protected.HandleFunc("/organizations/login", handlers.LoginOrganization).Methods("POST")
	protected.HandleFunc("/organizations/{id}/secret", handlers.UpdateOrganizationSecret).Methods("PUT")
	protected.HandleFunc("/organizations/{id}", handlers.DeleteOrganization).Methods("DELETE")

	// Members listing is cached for 10s per caller.
	protected.Handle("/organizations/{id}/members",
		middleware.CacheResponse(10*time.Second)(http.HandlerFunc(handlers.GetMembers))).Methods("GET")
	protected.HandleFunc("/organizations/{id}/members", handlers.AddMember).Methods("POST")
	protected.HandleFunc("/organizations/{id}/members/role", handlers.UpdateMemberRole).Methods("PUT")
	protected.HandleFunc("/organizations/{id}/members/{email}", handlers.RemoveMember).Methods("DELETE")

	protected.HandleFunc("/organizations/{id}/movements", handlers.GetMovements).Methods("GET")
	protected.HandleFunc("/organizations/{id}/movements", handlers.CreateMovement).Methods("POST")
	protected.HandleFunc("/organizations/{id}/movements/balance", handlers.GetBalance).Methods("GET")
	protected.HandleFunc("/organizations/{id}/movements/{noMov}", handlers.UpdateMovement).Methods("PUT")
	protected.HandleFunc("/organizations/{id}/movements/{noMov}", handlers.DeleteMovement).Methods("DELETE")
	protected.HandleFunc("/organizations/{id}/movements", handlers.DeleteAllMovements).Methods("DELETE")

	protected.HandleFunc("/organizations/{id}/messages", handlers.GetMessages).Methods("GET")
	protected.HandleFunc("/organizations/{id}/messages", handlers.PostMessage).Methods("POST")

	return r
}
