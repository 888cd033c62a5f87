package utils

import (
	"context"
	"os"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/storage"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

var bgContext = context.Background()

// AccessToken is the claims payload for the admin API. Role is always
// "admin" today; it stays in the claims so the verifier middleware has a
// single shape to check.
type AccessToken struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}

const (
	accessTokenLifetime  = 2 * time.Hour
	refreshTokenLifetime = 7 * 24 * time.Hour
)

func CreateTokenPair(subject string) (*jwt.TokenPair, error) {
	accessTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), accessTokenLifetime)
	refreshTokenSigner := jwt.NewSigner(jwt.HS256, os.Getenv("REFRESH_TOKEN_SECRET"), refreshTokenLifetime)

	accessToken, err := accessTokenSigner.Sign(AccessToken{Subject: subject, Role: "admin"})
	if err != nil {
		return nil, err
	}

	refreshToken, err := refreshTokenSigner.Sign(jwt.Claims{Subject: subject})
	if err != nil {
		return nil, err
	}

	var tokenPair jwt.TokenPair
	tokenPair.AccessToken = accessToken
	tokenPair.RefreshToken = refreshToken

	// Allowlist the refresh token so logout and rotation can revoke it.
	storage.Redis.Set(bgContext, string(refreshToken), "true", refreshTokenLifetime+5*time.Minute)

	return &tokenPair, nil
}

// RefreshToken rotates the pair: the presented refresh token must still be
// allowlisted, and is dropped from the allowlist once a new pair is issued.
func RefreshToken(ctx iris.Context) {
	token := jwt.GetVerifiedToken(ctx)
	tokenStr := string(token.Token)

	if _, err := storage.Redis.Get(bgContext, tokenStr).Result(); err != nil {
		CreateError(iris.StatusUnauthorized, "Unauthorized", "Refresh token revoked or unknown", ctx)
		return
	}

	claims := jwt.Get(ctx).(*jwt.Claims)

	tokenPair, err := CreateTokenPair(claims.Subject)
	if err != nil {
		CreateInternalServerError(ctx)
		return
	}

	storage.Redis.Del(bgContext, tokenStr)

	ctx.JSON(tokenPair)
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken"`
}
