package handler

import (
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"pawhaven/internal/auth"
)

// CurrentClaims extracts the identity placed in the context by the JWT
// middleware. ok is false on public routes with no (or an invalid) token.
// The middleware hands back a jwt/v5 token with map claims, so fields are
// pulled out by name here.
func CurrentClaims(c echo.Context) (*auth.Claims, bool) {
	token, ok := c.Get("user").(*jwtv5.Token)
	if !ok {
		return nil, false
	}
	mapClaims, ok := token.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, false
	}

	rawID, _ := mapClaims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil || userID == uuid.Nil {
		return nil, false
	}

	claims := &auth.Claims{UserID: userID}
	claims.Email, _ = mapClaims["email"].(string)
	claims.Role, _ = mapClaims["role"].(string)
	return claims, true
}
