package middlewares

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"marketplace-backend/config"
	"marketplace-backend/database"
	"marketplace-backend/models"
	"marketplace-backend/policy"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "

	userKey  = "user"
	actorKey = "actor"
)

// Claims is the JWT payload; the subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

type Auth struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
}

func NewAuth(cfg *config.Config, db *gorm.DB) *Auth {
	return &Auth{db: db, secret: []byte(cfg.JWT.Secret), ttl: cfg.JWT.TTL}
}

// Issue signs a new HS256 token for userID.
func (a *Auth) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) parse(raw string) (string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token missing subject")
	}
	return claims.Subject, nil
}

// Required rejects requests without a valid bearer token.
func (a *Auth) Required() fiber.Handler {
	return a.handler(true)
}

// Optional lets requests without an Authorization header through as anonymous.
// A header that is present but invalid is still rejected.
func (a *Auth) Optional() fiber.Handler {
	return a.handler(false)
}

func (a *Auth) handler(required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(authHeader)
		if h == "" {
			if required {
				return fiber.NewError(fiber.StatusUnauthorized, "authentication credentials were not provided")
			}
			return c.Next()
		}
		if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
			return fiber.NewError(fiber.StatusUnauthorized, "missing/invalid Authorization header")
		}
		raw := strings.TrimSpace(h[len(bearerPrefix):])
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid bearer token")
		}

		subject, err := a.parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		var user models.User
		if err := a.db.WithContext(c.UserContext()).Preload("Customer").Preload("Supplier").
			First(&user, "id = ?", subject).Error; err != nil {
			if database.IsNotFound(err) {
				return fiber.NewError(fiber.StatusUnauthorized, "user no longer exists")
			}
			return err
		}

		c.Locals(userKey, &user)
		c.Locals(actorKey, ActorOf(&user))
		return c.Next()
	}
}

// ActorOf builds the policy view of a loaded user (Customer and Supplier preloaded).
func ActorOf(u *models.User) *policy.Actor {
	a := &policy.Actor{UserID: u.Id, IsStaff: u.IsStaff}
	if u.Customer != nil {
		a.CustomerID = u.Customer.Id
	}
	if u.Supplier != nil {
		a.SupplierID = u.Supplier.Id
	}
	return a
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(userKey).(*models.User)
	return u
}

// ActorFrom returns the authenticated actor, or nil for anonymous requests.
func ActorFrom(c *fiber.Ctx) *policy.Actor {
	a, _ := c.Locals(actorKey).(*policy.Actor)
	return a
}
