package router

import (
	"net/http"
	"os"
	"strings"

	"bizcard/internal/api/v1/handler"
	"bizcard/internal/config"
	"bizcard/internal/middleware"
	"bizcard/internal/storage"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Card    *handler.CardHandler
	Contact *handler.ContactHandler
	Public  *handler.PublicHandler
	Billing *handler.BillingHandler
}

// publicPaths are served without a bearer token.
var publicPaths = map[string]bool{
	"/openapi.json":        true,
	"/openapi.yaml":        true,
	"/docs":                true,
	"/healthz":             true,
	"/auth/signup":         true,
	"/auth/signin":         true,
	"/auth/otp":            true,
	"/auth/oauth":          true,
	"/auth/verify":         true,
	"/auth/reset-password": true,
	"/billing/webhook":     true,
}

// maxAvatarBody leaves room for the multipart envelope around the image.
const maxAvatarBody = storage.MaxAvatarSize + 64<<10

func isPublicPath(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/schemas/") || strings.HasPrefix(path, "/public/")
}

// SetupHumaAPI creates a Huma API instance
func SetupHumaAPI(cfg *config.Config, authMiddleware func(http.Handler) http.Handler, logger zerolog.Logger) (*chi.Mux, huma.API) {
	chiRouter := chi.NewRouter()

	// Multipart bodies are spooled before the handler sees them, so cap them here.
	chiRouter.Use(middleware.BodyLimit(maxAvatarBody, "/users/me/avatar"))

	// Apply middleware based on path
	chiRouter.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			authMiddleware(next).ServeHTTP(w, r)
		})
	})

	version := os.Getenv("GIT_COMMIT_SHA")
	if version == "" {
		version = "development"
	}

	humaConfig := huma.DefaultConfig("bizcard API v1", version)
	humaConfig.Info.Description = "Digital business cards, contacts and billing"
	if cfg.APIBaseURL != "" {
		humaConfig.Servers = []*huma.Server{{URL: cfg.APIBaseURL}}
	}

	api := humachi.New(chiRouter, humaConfig)

	logger.Info().Str("version", version).Msg("Huma API initialized")
	return chiRouter, api
}

// RegisterRoutes registers all Huma operations
func RegisterRoutes(api huma.API, h Handlers, logger zerolog.Logger) {
	logger.Info().Msg("Registering routes")

	// ========== AUTH OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID:   "signUp",
		Method:        http.MethodPost,
		Path:          "/auth/signup",
		Summary:       "Sign up with email and password",
		Description:   "Creates an account. When email confirmation is enabled no session is returned and confirmation_required is set",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
	}, h.Auth.SignUp)

	huma.Register(api, huma.Operation{
		OperationID: "signIn",
		Method:      http.MethodPost,
		Path:        "/auth/signin",
		Summary:     "Sign in with email and password",
		Tags:        []string{"auth"},
	}, h.Auth.SignIn)

	huma.Register(api, huma.Operation{
		OperationID: "signInWithOTP",
		Method:      http.MethodPost,
		Path:        "/auth/otp",
		Summary:     "Send a magic link",
		Description: "Sends a one-time sign-in link to the given email address",
		Tags:        []string{"auth"},
	}, h.Auth.SignInWithOTP)

	huma.Register(api, huma.Operation{
		OperationID: "signInWithOAuth",
		Method:      http.MethodPost,
		Path:        "/auth/oauth",
		Summary:     "Start an OAuth sign-in",
		Description: "Returns the provider URL the browser must be redirected to",
		Tags:        []string{"auth"},
	}, h.Auth.SignInWithOAuth)

	huma.Register(api, huma.Operation{
		OperationID: "verifyOTP",
		Method:      http.MethodPost,
		Path:        "/auth/verify",
		Summary:     "Verify an email link",
		Description: "Exchanges the token hash of a magic link, confirmation or recovery email for a session",
		Tags:        []string{"auth"},
	}, h.Auth.VerifyOTP)

	huma.Register(api, huma.Operation{
		OperationID: "resetPassword",
		Method:      http.MethodPost,
		Path:        "/auth/reset-password",
		Summary:     "Send a password reset email",
		Tags:        []string{"auth"},
	}, h.Auth.ResetPassword)

	huma.Register(api, huma.Operation{
		OperationID:   "signOut",
		Method:        http.MethodPost,
		Path:          "/auth/signout",
		Summary:       "Sign out",
		Description:   "Ends the session and drops the server-side state of the user",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusNoContent,
	}, h.Auth.SignOut)

	huma.Register(api, huma.Operation{
		OperationID: "updatePassword",
		Method:      http.MethodPut,
		Path:        "/auth/password",
		Summary:     "Change password",
		Tags:        []string{"auth"},
	}, h.Auth.UpdatePassword)

	// ========== USER OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "getMe",
		Method:      http.MethodGet,
		Path:        "/users/me",
		Summary:     "Get the signed-in user",
		Description: "Returns the user, the profile and the derived plan",
		Tags:        []string{"users"},
	}, h.User.GetMe)

	huma.Register(api, huma.Operation{
		OperationID: "uploadAvatar",
		Method:      http.MethodPost,
		Path:        "/users/me/avatar",
		Summary:     "Upload avatar",
		Description: "Accepts a JPEG, PNG, WebP or GIF image of at most 5MB",
		Tags:        []string{"users"},
	}, h.User.UploadAvatar)

	huma.Register(api, huma.Operation{
		OperationID: "getNotificationPreferences",
		Method:      http.MethodGet,
		Path:        "/users/me/preferences/notifications",
		Summary:     "Get notification preferences",
		Tags:        []string{"users", "preferences"},
	}, h.User.GetNotificationPreferences)

	huma.Register(api, huma.Operation{
		OperationID: "updateNotificationPreferences",
		Method:      http.MethodPut,
		Path:        "/users/me/preferences/notifications",
		Summary:     "Update notification preferences",
		Tags:        []string{"users", "preferences"},
	}, h.User.UpdateNotificationPreferences)

	huma.Register(api, huma.Operation{
		OperationID: "getAppearancePreferences",
		Method:      http.MethodGet,
		Path:        "/users/me/preferences/appearance",
		Summary:     "Get appearance preferences",
		Tags:        []string{"users", "preferences"},
	}, h.User.GetAppearancePreferences)

	huma.Register(api, huma.Operation{
		OperationID: "updateAppearancePreferences",
		Method:      http.MethodPut,
		Path:        "/users/me/preferences/appearance",
		Summary:     "Update appearance preferences",
		Tags:        []string{"users", "preferences"},
	}, h.User.UpdateAppearancePreferences)

	// ========== CARD OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "listCards",
		Method:      http.MethodGet,
		Path:        "/cards",
		Summary:     "List cards",
		Description: "Returns the user's cards, newest first",
		Tags:        []string{"cards"},
	}, h.Card.ListCards)

	huma.Register(api, huma.Operation{
		OperationID: "getCardSummary",
		Method:      http.MethodGet,
		Path:        "/cards/summary",
		Summary:     "Get card totals and plan limits",
		Tags:        []string{"cards"},
	}, h.Card.GetCardSummary)

	huma.Register(api, huma.Operation{
		OperationID:   "createCard",
		Method:        http.MethodPost,
		Path:          "/cards",
		Summary:       "Create a card",
		Description:   "Free accounts may own one card and premium accounts five",
		Tags:          []string{"cards"},
		DefaultStatus: http.StatusCreated,
	}, h.Card.CreateCard)

	huma.Register(api, huma.Operation{
		OperationID: "getCard",
		Method:      http.MethodGet,
		Path:        "/cards/{cardId}",
		Summary:     "Get a card",
		Tags:        []string{"cards"},
	}, h.Card.GetCard)

	huma.Register(api, huma.Operation{
		OperationID: "updateCard",
		Method:      http.MethodPut,
		Path:        "/cards/{cardId}",
		Summary:     "Update a card",
		Tags:        []string{"cards"},
	}, h.Card.UpdateCard)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteCard",
		Method:        http.MethodDelete,
		Path:          "/cards/{cardId}",
		Summary:       "Delete a card",
		Tags:          []string{"cards"},
		DefaultStatus: http.StatusNoContent,
	}, h.Card.DeleteCard)

	huma.Register(api, huma.Operation{
		OperationID: "toggleCardStatus",
		Method:      http.MethodPost,
		Path:        "/cards/{cardId}/toggle",
		Summary:     "Activate or deactivate a card",
		Description: "Inactive cards are hidden from the public view",
		Tags:        []string{"cards"},
	}, h.Card.ToggleCardStatus)

	// ========== CONTACT OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "listContacts",
		Method:      http.MethodGet,
		Path:        "/contacts",
		Summary:     "List contacts",
		Description: "Returns all contacts, most recently scanned first, and the subset matching search and tags",
		Tags:        []string{"contacts"},
	}, h.Contact.ListContacts)

	huma.Register(api, huma.Operation{
		OperationID: "listContactTags",
		Method:      http.MethodGet,
		Path:        "/contacts/tags",
		Summary:     "List contact tags",
		Tags:        []string{"contacts"},
	}, h.Contact.ListTags)

	huma.Register(api, huma.Operation{
		OperationID:   "createContact",
		Method:        http.MethodPost,
		Path:          "/contacts",
		Summary:       "Create a contact",
		Tags:          []string{"contacts"},
		DefaultStatus: http.StatusCreated,
	}, h.Contact.CreateContact)

	huma.Register(api, huma.Operation{
		OperationID: "updateContact",
		Method:      http.MethodPut,
		Path:        "/contacts/{contactId}",
		Summary:     "Update a contact",
		Tags:        []string{"contacts"},
	}, h.Contact.UpdateContact)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteContact",
		Method:        http.MethodDelete,
		Path:          "/contacts/{contactId}",
		Summary:       "Delete a contact",
		Tags:          []string{"contacts"},
		DefaultStatus: http.StatusNoContent,
	}, h.Contact.DeleteContact)

	// ========== PUBLIC OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "viewPublicCard",
		Method:      http.MethodGet,
		Path:        "/public/cards/{cardId}",
		Summary:     "View a public card",
		Description: "Returns an active card and records the view as a scan",
		Tags:        []string{"public"},
	}, h.Public.ViewPublicCard)

	huma.Register(api, huma.Operation{
		OperationID:   "connect",
		Method:        http.MethodPost,
		Path:          "/public/cards/{cardId}/connect",
		Summary:       "Leave contact details",
		Description:   "Queues the visitor's details for import into the card owner's contacts",
		Tags:          []string{"public"},
		DefaultStatus: http.StatusAccepted,
	}, h.Public.Connect)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Health check",
		Tags:        []string{"public"},
	}, h.Public.Health)

	// ========== BILLING OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "createCheckoutSession",
		Method:      http.MethodPost,
		Path:        "/billing/checkout",
		Summary:     "Start a premium checkout",
		Description: "Returns the Stripe Checkout URL for the premium plan",
		Tags:        []string{"billing"},
	}, h.Billing.CreateCheckoutSession)

	huma.Register(api, huma.Operation{
		OperationID: "createPortalSession",
		Method:      http.MethodPost,
		Path:        "/billing/portal",
		Summary:     "Open the billing portal",
		Tags:        []string{"billing"},
	}, h.Billing.CreatePortalSession)

	huma.Register(api, huma.Operation{
		OperationID: "stripeWebhook",
		Method:      http.MethodPost,
		Path:        "/billing/webhook",
		Summary:     "Stripe webhook",
		Description: "Verifies the Stripe signature and applies subscription changes to the premium flag",
		Tags:        []string{"billing"},
	}, h.Billing.StripeWebhook)

	logger.Info().Int("total_paths", len(api.OpenAPI().Paths)).Msg("All operations registered successfully")
}
