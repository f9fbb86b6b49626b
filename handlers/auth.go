package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// Token lifetimes
const (
	jwtTTL             = 7 * 24 * time.Hour
	activationTokenTTL = 24 * time.Hour
	resetTokenTTL      = 1 * time.Hour
)

type AuthHandler struct {
	db        *sql.DB
	jwtSecret []byte
	mailer    Mailer
	guard     *loginGuard
}

func NewAuthHandler(db *sql.DB, mailer Mailer) *AuthHandler {
	secret := os.Getenv("JWT_SECRET")
	env := os.Getenv("APP_ENV")

	if secret == "" {
		if env == "production" {
			log.Fatal("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		// Development fallback with warning
		log.Println("WARNING: JWT_SECRET not set. Using default secret. Set JWT_SECRET in production!")
		secret = "clouddrive-dev-secret-not-for-production-use"
	} else if len(secret) < 32 {
		log.Println("WARNING: JWT_SECRET should be at least 32 characters for security")
	}

	return &AuthHandler{
		db:        db,
		jwtSecret: []byte(secret),
		mailer:    mailer,
		guard:     newLoginGuard(),
	}
}

// JWTClaims represents JWT claims
type JWTClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// User represents a user account as exposed by the API
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	IsActivated bool      `json:"isActivated"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(passwordRule)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
	)
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ForgotPasswordRequest represents a password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetPasswordRequest carries the reset token and the new password
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.By(passwordRule)),
	)
}

// GenerateJWT generates a bearer token for a user
func (h *AuthHandler) GenerateJWT(userID, email string) (string, error) {
	claims := &JWTClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(jwtTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "clouddrive",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

// normalizeEmail canonicalizes an address before validation and lookup, so
// mixed-case input like Taken@Example.com matches the stored lowercase form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateOpaqueToken returns a 32-byte random token, hex encoded.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Register creates an inactive account and sends the activation email.
// Email delivery failure is logged but does not fail registration; the
// activation can be re-requested through a side channel.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}

	email := req.Email

	var exists bool
	if err := h.db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists); err != nil {
		return RespondError(c, ErrInternal("Database error"))
	}
	if exists {
		return RespondError(c, ErrBadRequest("User already exists with this email"))
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to process password"))
	}

	activationToken, err := generateOpaqueToken()
	if err != nil {
		return RespondError(c, ErrInternal("Failed to generate activation token"))
	}

	userID := uuid.NewString()
	_, err = h.db.Exec(`
		INSERT INTO users (id, email, password_hash, first_name, last_name, is_activated, activation_token, activation_expires)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
	`, userID, email, string(passwordHash), req.FirstName, req.LastName, activationToken, time.Now().Add(activationTokenTTL))
	if err != nil {
		return RespondError(c, ErrInternal("Failed to create account"))
	}

	if err := h.mailer.SendActivationEmail(email, req.FirstName, activationToken); err != nil {
		LogError("activation email delivery failed", err, "email", email)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Registration successful! Please check your email to activate your account.",
	})
}

// Activate consumes a single-use activation token.
func (h *AuthHandler) Activate(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return RespondError(c, ErrMissingParameter("token"))
	}

	res, err := h.db.Exec(`
		UPDATE users
		SET is_activated = TRUE, activation_token = NULL, activation_expires = NULL, updated_at = NOW()
		WHERE activation_token = $1 AND activation_expires > NOW()
	`, token)
	if err != nil {
		return RespondError(c, ErrInternal("Database error"))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return RespondError(c, ErrInternal("Database error"))
	}
	if affected == 0 {
		return RespondError(c, ErrBadRequest("Invalid or expired activation token"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Account activated successfully! You can now login.",
	})
}

// Login checks credentials and returns a bearer token. Unknown email and
// wrong password share one message; a not-yet-activated account gets its
// own, which leaks account existence but lets the user recover.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}
	if err := req.Validate(); err != nil {
		return RespondError(c, ErrBadRequest("Please provide email and password"))
	}

	email := normalizeEmail(req.Email)

	if !h.guard.Allow(email) {
		return RespondError(c, ErrTooManyAttempts())
	}

	var user User
	var passwordHash string
	err := h.db.QueryRow(`
		SELECT id, email, password_hash, first_name, last_name, is_activated, created_at, updated_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &passwordHash, &user.FirstName, &user.LastName,
		&user.IsActivated, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return RespondError(c, ErrUnauthorized("Invalid email or password"))
	}
	if err != nil {
		return RespondError(c, ErrInternal("Database error"))
	}

	if !user.IsActivated {
		return RespondError(c, ErrUnauthorized("Please activate your account first. Check your email for the activation link."))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		return RespondError(c, ErrUnauthorized("Invalid email or password"))
	}

	token, err := h.GenerateJWT(user.ID, user.Email)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to generate token"))
	}

	h.guard.Reset(email)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// ForgotPassword issues a reset token without revealing whether the email
// exists. If the email cannot be delivered the token is cleared again so a
// reset the user never saw cannot linger.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}

	email := req.Email
	neutralResponse := map[string]interface{}{
		"success": true,
		"message": "If an account exists with this email, a reset link will be sent.",
	}

	var userID, firstName string
	err := h.db.QueryRow("SELECT id, first_name FROM users WHERE email = $1", email).Scan(&userID, &firstName)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusOK, neutralResponse)
	}
	if err != nil {
		return RespondError(c, ErrInternal("Database error"))
	}

	resetToken, err := generateOpaqueToken()
	if err != nil {
		return RespondError(c, ErrInternal("Failed to generate reset token"))
	}

	_, err = h.db.Exec(`
		UPDATE users SET reset_token = $1, reset_expires = $2, updated_at = NOW() WHERE id = $3
	`, resetToken, time.Now().Add(resetTokenTTL), userID)
	if err != nil {
		return RespondError(c, ErrInternal("Database error"))
	}

	if err := h.mailer.SendPasswordResetEmail(email, firstName, resetToken); err != nil {
		LogError("reset email delivery failed", err, "email", email)

		// Roll the token back; a reset link the user never received must
		// not remain usable.
		if _, rbErr := h.db.Exec(
			"UPDATE users SET reset_token = NULL, reset_expires = NULL, updated_at = NOW() WHERE id = $1",
			userID,
		); rbErr != nil {
			LogError("reset token rollback failed", rbErr, "user_id", userID)
		}

		return RespondError(c, NewAPIError(ErrCodeEmailFailed, "Error sending email. Please try again."))
	}

	return c.JSON(http.StatusOK, neutralResponse)
}

// ResetPassword consumes a single-use reset token and sets a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}
	if err := req.Validate(); err != nil {
		return RespondError(c, ErrBadRequest(err.Error()))
	}

	var userID string
	err := h.db.QueryRow(
		"SELECT id FROM users WHERE reset_token = $1 AND reset_expires > NOW()",
		req.Token,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return RespondError(c, ErrBadRequest("Invalid or expired reset token"))
	}
	if err != nil {
		return RespondError(c, ErrInternal("Database error"))
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to process password"))
	}

	_, err = h.db.Exec(`
		UPDATE users SET password_hash = $1, reset_token = NULL, reset_expires = NULL, updated_at = NOW() WHERE id = $2
	`, string(passwordHash), userID)
	if err != nil {
		return RespondError(c, ErrInternal("Database error"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password reset successfully! You can now login with your new password.",
	})
}

// GetProfile returns the authenticated user's account.
func (h *AuthHandler) GetProfile(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	var user User
	dbErr := h.db.QueryRow(`
		SELECT id, email, first_name, last_name, is_activated, created_at, updated_at
		FROM users WHERE id = $1
	`, claims.UserID).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.IsActivated, &user.CreatedAt, &user.UpdatedAt)
	if dbErr == sql.ErrNoRows {
		return RespondError(c, ErrNotFound("User"))
	}
	if dbErr != nil {
		return RespondError(c, ErrInternal("Database error"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    user,
	})
}

// JWTMiddleware validates the bearer token and stores the claims in the
// request context.
func (h *AuthHandler) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var tokenString string

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			return RespondError(c, ErrUnauthorized("Authorization required"))
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return h.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			return RespondError(c, NewAPIError(ErrCodeInvalidToken, "Invalid or expired token"))
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			return RespondError(c, NewAPIError(ErrCodeInvalidToken, "Invalid token claims"))
		}

		c.Set("user", claims)
		return next(c)
	}
}
