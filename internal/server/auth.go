package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v5"
	"github.com/xaenox/threadhub/internal/models"
)

// currentUser resolves the session collaborator: a signed bearer token
// carrying the user's id, email and display name. The user row is upserted
// on every authenticated request, which is what makes "must log in once
// before being added" hold for invitations.
func (s *Server) currentUser(c *echo.Context) (models.User, error) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return models.User{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return models.User{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user := models.User{}
	if sub, ok := claims["sub"].(string); ok {
		user.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		user.Name = name
	}
	if user.ID == "" || user.Email == "" {
		return models.User{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := s.store.UpsertUser(c.Request().Context(), &user); err != nil {
		return models.User{}, echo.NewHTTPError(http.StatusInternalServerError, "failed to record user")
	}
	return user, nil
}

// bearerToken pulls the token from the Authorization header, falling back
// to the token query parameter for websocket clients that cannot set
// headers.
func bearerToken(c *echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.QueryParam("token")
}
