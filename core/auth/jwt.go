package auth

import (
	"fmt"
	"time"

	"ScoreRack/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecret []byte
	tokenTTL  = 72 * time.Hour
)

// Configure 设置JWT签名密钥与有效期，服务启动时调用一次
func Configure(secret string, ttlHours int) {
	jwtSecret = []byte(secret)
	if ttlHours > 0 {
		tokenTTL = time.Duration(ttlHours) * time.Hour
	}
}

// Claims 是携带角色上下文的JWT声明。
// 矩阵投影的裁剪只读取这里的 isManager/instrumentId/voiceId，
// 本服务不自行推导权限。
type Claims struct {
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	IsManager    bool   `json:"isManager"`
	InstrumentID int64  `json:"instrumentId"`
	VoiceID      int64  `json:"voiceId"`
	jwt.RegisteredClaims
}

// ViewerContext 将声明转换为只读角色上下文
func (c *Claims) ViewerContext() model.ViewerContext {
	return model.ViewerContext{
		UserID:       c.UserID,
		IsManager:    c.IsManager,
		InstrumentID: c.InstrumentID,
		VoiceID:      c.VoiceID,
	}
}

// GenerateToken 为成员签发JWT
func GenerateToken(user *model.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:       user.ID,
		Username:     user.Username,
		IsManager:    user.IsManager,
		InstrumentID: user.InstrumentID,
		VoiceID:      user.VoiceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			Issuer:    "scorerack",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken 解析并校验JWT，返回其中的声明
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
