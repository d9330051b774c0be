package utils

import (
	"errors"
	"fmt"
	"time"

	"secure-vault/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// 自定义JWT声明结构。组列表在每次登录时从目录服务重新取得，
// 烙进令牌后作为显式参数传给权限解析，引擎内部不缓存。
type Claims struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
	IsAdmin  bool     `json:"is_admin"`
	jwt.RegisteredClaims
}

// 生成JWT令牌
func GenerateToken(userID uint, username string, groups []string, isAdmin bool) (string, error) {
	claims := Claims{
		UserID:   userID,
		Username: username,
		Groups:   groups,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			// 过期时间
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(config.GlobalConfig.JWT.Expiration)),
			// 签发时间
			IssuedAt: jwt.NewNumericDate(time.Now()),
			// 生效时间
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.GlobalConfig.JWT.Secret))
}

// 解析JWT令牌
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.GlobalConfig.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
