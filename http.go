package authflow

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// StatusProvider is what the status routes need from a resolver
type StatusProvider interface {
	Status() Status
	FetchUser(ctx context.Context) error
	FetchRegistration(ctx context.Context) error
}

// StatusRoutes holds the paths the status handlers are mounted on
type StatusRoutes struct {
	Status              string
	RefreshUser         string
	RefreshRegistration string
}

// DefaultStatusRoutes returns the default paths
func DefaultStatusRoutes() StatusRoutes {
	return StatusRoutes{
		Status:              "/auth/status",
		RefreshUser:         "/auth/user/refresh",
		RefreshRegistration: "/auth/registration/refresh",
	}
}

// StatusResponse is the JSON body served by the status route
type StatusResponse struct {
	Loading      bool             `json:"loading"`
	State        ApplicationState `json:"state"`
	Route        string           `json:"route,omitempty"`
	Path         string           `json:"path"`
	HasToken     bool             `json:"has_token"`
	User         *User            `json:"user,omitempty"`
	Registration *Registration    `json:"registration,omitempty"`
	Loaded       LoadedFlags      `json:"loaded"`
}

// NewStatusResponse builds the response body for status
func NewStatusResponse(status Status, prefix string) StatusResponse {
	return StatusResponse{
		Loading:      status.Loading,
		State:        status.State,
		Route:        status.State.Route(prefix),
		Path:         status.Path,
		HasToken:     status.HasToken,
		User:         status.User,
		Registration: status.Registration,
		Loaded:       status.Loaded,
	}
}

// RegisterStatusRoutes mounts the status and refresh handlers on app
func RegisterStatusRoutes(app fiber.Router, r StatusProvider, opts ...StatusRouteOption) {
	h := &statusHandler{
		provider: r,
		routes:   DefaultStatusRoutes(),
		cfg:      DefaultResolverConfig(),
		logger:   defLogger{},
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	app.Get(h.routes.Status, h.status)
	app.Post(h.routes.RefreshUser, h.refreshUser)
	app.Post(h.routes.RefreshRegistration, h.refreshRegistration)
}

// StatusRouteOption customizes RegisterStatusRoutes
type StatusRouteOption func(*statusHandler)

// WithStatusRoutes overrides the mounted paths. Empty fields keep defaults.
func WithStatusRoutes(routes StatusRoutes) StatusRouteOption {
	return func(h *statusHandler) {
		if routes.Status != "" {
			h.routes.Status = routes.Status
		}
		if routes.RefreshUser != "" {
			h.routes.RefreshUser = routes.RefreshUser
		}
		if routes.RefreshRegistration != "" {
			h.routes.RefreshRegistration = routes.RefreshRegistration
		}
	}
}

// WithStatusConfig sets the config used to render routes
func WithStatusConfig(cfg Config) StatusRouteOption {
	return func(h *statusHandler) {
		if cfg != nil {
			h.cfg = cfg
		}
	}
}

// WithStatusLogger overrides the logger
func WithStatusLogger(logger Logger) StatusRouteOption {
	return func(h *statusHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithWaitTimeout bounds how long ?wait=true blocks on a Waiter
func WithWaitTimeout(timeout time.Duration) StatusRouteOption {
	return func(h *statusHandler) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// Waiter is implemented by providers that can block until ready
type Waiter interface {
	Ready(ctx context.Context) (Status, error)
}

type statusHandler struct {
	provider StatusProvider
	routes   StatusRoutes
	cfg      Config
	logger   Logger
	timeout  time.Duration
}

func (h *statusHandler) status(c *fiber.Ctx) error {
	status := h.provider.Status()

	if c.QueryBool("wait") {
		if w, ok := h.provider.(Waiter); ok {
			ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
			defer cancel()
			ready, err := w.Ready(ctx)
			if err != nil && !goerrors.Is(err, context.DeadlineExceeded) {
				return h.sendError(c, err)
			}
			status = ready
		}
	}

	return c.JSON(NewStatusResponse(status, h.cfg.GetRoutePrefix()))
}

func (h *statusHandler) refreshUser(c *fiber.Ctx) error {
	if err := h.provider.FetchUser(c.UserContext()); err != nil {
		return h.sendError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *statusHandler) refreshRegistration(c *fiber.Ctx) error {
	if err := h.provider.FetchRegistration(c.UserContext()); err != nil {
		return h.sendError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *statusHandler) sendError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "resolver request failed").
			WithCode(goerrors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = fiber.StatusInternalServerError
	}

	h.logger.Error("status route error: %s", richErr.Error())
	return c.Status(code).JSON(fiber.Map{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
		"category":  richErr.Category,
	})
}

// StatusMiddleware stores the current resolver status in the request
// context so handlers can read it with StatusFromContext.
func StatusMiddleware(r StatusProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := r.Status()
		c.SetUserContext(WithStatusContext(c.UserContext(), status))
		c.Locals("authflow_state", string(status.State))
		return c.Next()
	}
}
