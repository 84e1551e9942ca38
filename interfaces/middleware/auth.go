package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mido200912/Ai-Thor/domain/dto"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// CompanyClaims are the dashboard token claims. Tokens from the auth service
// carry the company as "company_id"; older ones use "cid".
type CompanyClaims struct {
	CompanyID    string `json:"company_id,omitempty"`
	LegacyCompID string `json:"cid,omitempty"`
	jwt.StandardClaims
}

func (c CompanyClaims) Company() string {
	if c.CompanyID != "" {
		return c.CompanyID
	}
	return c.LegacyCompID
}

// Auth verifies the Bearer token with secretKey and sets "company_id" on the
// context.
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		authorization := ctx.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(authorization, "Bearer ")
		if !ok || raw == "" || secretKey == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		claims, err := getClaim(raw, secretKey)
		if err != nil {
			res.ResponseMessage = abort(err)
			logger.GetLogger().WithField("error", err).Warn("Rejected dashboard token")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		if claims.Company() == "" {
			res.ResponseMessage = "Token carries no company"
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		ctx.Set("company_id", claims.Company())
		ctx.Next()
	}
}

func abort(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Timing is everything"
		}
	}
	return "Unauthorized"
}

func getClaim(raw, secretKey string) (*CompanyClaims, error) {
	var claims CompanyClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return &claims, nil
}
