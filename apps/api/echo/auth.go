package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/staff"
)

var contextStaffKey = "staff"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Name         string `json:"name,omitempty"`
}

type authenticator struct {
	config             middleware.JWTConfig
	issuer             string
	expirationDelta    time.Duration
	refreshExpiryDelta time.Duration
}

func newAuthenticator(conf *core.Config) authenticator {
	return authenticator{
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "staffToken",
			Claims:        new(Claims),
		},
		issuer:             conf.AppName,
		expirationDelta:    conf.Server.JWTExpirationDelta,
		refreshExpiryDelta: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (a authenticator) claims(s staff.Staff, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.issuer,
			Subject:   s.ID,
			Audience:  "Admissions Console",
			ExpiresAt: now.Add(a.expirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     s.Username,
		Name:         s.Name,
	}
}

// token generates a signed JWT token string representing the Claims.
func (a authenticator) token(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.config.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.config.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a authenticator) contextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(a.config.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextPerson identifies the authenticated staff member for the logger, if any.
func (a authenticator) contextPerson(ctx echo.Context) core.Person {
	var p core.Person
	if claims, err := a.contextClaims(ctx); err == nil {
		p.ID = claims.Subject
		p.Username = claims.Username
	}
	return p
}

func (a authenticator) contextStaff(ctx echo.Context, svc *staff.Service) (staff.Staff, error) {
	if s, ok := ctx.Get(contextStaffKey).(staff.Staff); ok {
		return s, nil
	}
	claims, err := a.contextClaims(ctx)
	if err != nil {
		return staff.Staff{}, err
	}
	s, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == staff.ErrNotFound {
			return staff.Staff{}, errUnauthorized
		}
		return staff.Staff{}, errors.Wrap(err, "finding staff by ID")
	}
	ctx.Set(contextStaffKey, s)
	return s, nil
}

func (a authenticator) refresh(ctx echo.Context, svc *staff.Service) (string, error) {
	claims, err := a.contextClaims(ctx)
	if err != nil {
		return "", err
	}
	s, err := a.contextStaff(ctx, svc)
	if err != nil {
		return "", err
	}

	// check if staff is still active
	if !s.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshExpiryDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}
	return a.token(a.claims(s, claims.OrigIssuedAt))
}

// GenerateToken returns a signed token for `s`, as issued by the login endpoint.
func GenerateToken(conf *core.Config, s staff.Staff) (string, error) {
	a := newAuthenticator(conf)
	return a.token(a.claims(s))
}
