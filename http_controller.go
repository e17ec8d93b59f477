package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the request gate and the auth endpoints on app
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Use(controller.Gate.Gate())

	app.Get(controller.Routes.Health, controller.Health).
		SetName("health.get")

	app.Post(controller.Routes.Login, controller.handle(controller.LoginPost)).
		SetName("sign-in.post")

	app.Post(controller.Routes.Register, controller.handle(controller.RegistrationCreate)).
		SetName("register.post")

	app.Get(controller.Routes.List,
		controller.handle(controller.ListUsers),
		controller.Gate.RequireIdentity(),
	).SetName("users.list")

	return controller
}

type AuthControllerRoutes struct {
	Login    string
	Register string
	List     string
	Health   string
}

type AuthController struct {
	Debug  bool
	Logger Logger
	Routes *AuthControllerRoutes
	Auther Authenticator
	Gate   *RouteAuthenticator
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

// WithAuthenticator sets the flows served by the controller
func WithAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// WithRouteAuthenticator sets the gate and identity policy
func WithRouteAuthenticator(gate *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Gate = gate
		return c
	}
}

// WithDebug enables payload debug logging
func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger(),
		Routes: &AuthControllerRoutes{
			Login:    "/auth/login",
			Register: "/auth/register",
			List:     "/auth",
			Health:   "/healthz",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Gate == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	return c
}

// handle writes errors returned by h through the gate error handler
func (a *AuthController) handle(h router.HandlerFunc) router.HandlerFunc {
	return func(ctx router.Context) error {
		if err := h(ctx); err != nil {
			return a.Gate.ErrorHandler(ctx, err)
		}
		return nil
	}
}

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Username,
			validation.Required.Error("username is required"),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("password is required"),
		),
	)
}

// LoginResponse is sent after a successful login
type LoginResponse struct {
	Token string `json:"token"`
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body")
	}

	payload.Username = strings.TrimSpace(payload.Username)

	if err := payload.Validate(); err != nil {
		return goerrors.FromOzzoValidation(err, "invalid login payload")
	}

	if a.Debug {
		a.Logger.Debug("auth login", "username", payload.Username)
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Username, payload.Password)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, LoginResponse{Token: token})
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegisterUserMessage)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("register user parse payload", "error", err)
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body")
	}

	if a.Debug {
		a.Logger.Debug("auth register", "username", payload.Username, "email", payload.Email)
	}

	user, err := a.Auther.Register(ctx.Context(), *payload)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, user)
}

// ListUsers writes every user as a JSON array
func (a *AuthController) ListUsers(ctx router.Context) error {
	users := make([]*User, 0)

	for user, err := range a.Auther.ListAll(ctx.Context()) {
		if err != nil {
			return err
		}
		users = append(users, user)
	}

	return ctx.JSON(router.StatusOK, users)
}

func (a *AuthController) Health(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
}
