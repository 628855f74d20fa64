package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSecretMissing 未配置签名密钥
	ErrSecretMissing = errors.New("jwt secret missing")
	// ErrTokenInvalid 令牌无效或已过期
	ErrTokenInvalid = errors.New("token invalid")
	// ErrHeaderInvalid Authorization 头格式错误
	ErrHeaderInvalid = errors.New("authorization header invalid")
)

// Identity 当前用户身份，UserID 为空表示匿名
type Identity struct {
	UserID string
	Email  string
	Token  string
}

// Authenticated 是否已登录
func (i Identity) Authenticated() bool {
	return strings.TrimSpace(i.UserID) != ""
}

// SameUser 是否为同一登录用户
func (i Identity) SameUser(other Identity) bool {
	return i.Authenticated() && other.Authenticated() && i.UserID == other.UserID
}

// Authenticator 鉴权协作方，只负责识别身份，不负责登录登出
type Authenticator interface {
	Identify(bearer string) (Identity, error)
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// JWTAuthenticator 校验 HS256 用户令牌
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator 创建 JWT 鉴权器
func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(strings.TrimSpace(secret))}
}

// Identify 解析令牌，空令牌返回匿名身份
func (a *JWTAuthenticator) Identify(bearer string) (Identity, error) {
	tokenString := strings.TrimSpace(bearer)
	if tokenString == "" {
		return Identity{}, nil
	}
	if len(a.secret) == 0 {
		return Identity{}, ErrSecretMissing
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == 0 {
		return Identity{}, ErrTokenInvalid
	}
	return Identity{
		UserID: strconv.FormatUint(uint64(claims.UserID), 10),
		Email:  claims.Email,
		Token:  tokenString,
	}, nil
}

// IssueToken 签发用户令牌
func (a *JWTAuthenticator) IssueToken(userID uint, email string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrSecretMissing
	}
	now := time.Now()
	claims := UserJWTClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// BearerToken 从 Authorization 头中取出令牌，头为空时返回空串
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", ErrHeaderInvalid
	}
	return strings.TrimSpace(parts[1]), nil
}
