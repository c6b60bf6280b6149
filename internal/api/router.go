package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/FeedbackBot/internal/handler"
	"github.com/Gopher0727/FeedbackBot/middleware/jwt"
	"github.com/Gopher0727/FeedbackBot/utils/ratelimit"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Feedback *handler.FeedbackHandler
	User     *handler.UserHandler
	Task     *handler.TaskHandler
	Mention  *handler.MentionHandler
	Team     *handler.TeamHandler
	Quote    *handler.QuoteHandler
}

// NewRouter builds the engine with the global middleware and every route.
func NewRouter(m *MiddlewareManager, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(m.Recovery(), m.TraceID(), m.Logger(), m.CORS())
	RegisterRoutes(r, m, h)
	return r
}

// RegisterRoutes registers all API routes
func RegisterRoutes(r *gin.Engine, m *MiddlewareManager, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.Use(m.RateLimit(ratelimit.EndpointAuth))
		{
			auth.POST("/token", h.Auth.Token)
			auth.POST("/refresh", h.Auth.Refresh)
		}
	}

	protected := api.Group("")
	protected.Use(m.JWTAuth(), m.RequireScope(jwt.ScopeGateway), m.RateLimit(ratelimit.EndpointAPI))
	{
		messages := protected.Group("/messages")
		{
			messages.POST("", h.Feedback.Submit)
			messages.GET("/new", h.Feedback.ListNew)
			messages.POST("/:id/replies", h.Feedback.Reply)
			messages.POST("/cleanup", h.Feedback.Cleanup)
		}

		protected.GET("/stats", h.Feedback.Stats)

		users := protected.Group("/users")
		{
			users.GET("/:identity", h.User.Get)
			users.GET("/:identity/messages", h.Feedback.ListForUser)
			users.GET("/:identity/teams", h.Team.TeamsOf)
			users.PUT("/:identity/ban", h.User.Ban)
			users.DELETE("/:identity/ban", h.User.Unban)
		}

		admins := protected.Group("/admins")
		{
			admins.GET("", h.User.Admins)
			admins.POST("/call", h.User.CallAdmins)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.POST("", h.Task.Create)
			tasks.GET("", h.Task.List)
			tasks.GET("/overdue", h.Task.Overdue)
			tasks.GET("/:id", h.Task.Get)
			tasks.PUT("/:id/assignee", h.Task.Assign)
			tasks.PUT("/:id/status", h.Task.SetStatus)
			tasks.DELETE("/:id", h.Task.Delete)
		}

		chats := protected.Group("/chats/:chat")
		{
			chats.POST("/mentions", h.Mention.Register)
			chats.GET("/mentions", h.Mention.Members)
			chats.GET("/mentions/:user", h.Mention.IsRegistered)
			chats.POST("/broadcasts", h.Mention.Broadcast)
		}

		teams := protected.Group("/teams")
		{
			teams.POST("", h.Team.Create)
			teams.POST("/:id/members", h.Team.AddMember)
			teams.GET("/:id/members", h.Team.Members)
			teams.POST("/:id/motivate", h.Team.Motivate)
		}

		quotes := protected.Group("/quotes")
		{
			quotes.GET("", h.Quote.List)
			quotes.POST("", h.Quote.Add)
			quotes.GET("/random", h.Quote.Random)
			quotes.GET("/categories", h.Quote.Categories)
			quotes.DELETE("/:id", h.Quote.Delete)
		}
	}
}
