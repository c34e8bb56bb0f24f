package middleware

import (
	"net/http"
	"strings"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

var jwtService services.InterfaceJWTService

// InitAuthMiddleware 初始化认证中间件
func InitAuthMiddleware(cfg *config.Config) {
	jwtService = services.NewJWTService(cfg)
}

// Authentication 通用的认证中间件: 校验Bearer令牌并把声明写入上下文
// 不调用c.Next()，因此既可以直接挂在路由上，也可以被角色中间件复用
func Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Authorization header is required",
				"data":    nil,
			})
			c.Abort()
			return
		}

		// 检查是否是Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Authorization header format must be Bearer {token}",
				"data":    nil,
			})
			c.Abort()
			return
		}

		tokenString := parts[1]
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Invalid token format",
				"data":    nil,
			})
			c.Abort()
			return
		}

		// 验证token
		token, err := jwtService.ValidateToken(tokenString)
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Invalid or expired token",
				"data":    nil,
			})
			c.Abort()
			return
		}

		// 提取claims并设置到上下文中
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Invalid token claims",
				"data":    nil,
			})
			c.Abort()
			return
		}

		c.Set("guardianID", claims["guardian_id"])
		c.Set("role", claims["role"])
		c.Set("claims", claims)
	}
}

// AuthenticateGuardian 验证家长权限: 通用认证之上追加角色校验
func AuthenticateGuardian() gin.HandlerFunc {
	authenticate := Authentication()

	return func(c *gin.Context) {
		authenticate(c)
		if c.IsAborted() {
			return
		}

		role, _ := c.Get("role")
		if roleStr, ok := role.(string); !ok || roleStr != "guardian" {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "Insufficient permissions: requires guardian role",
				"data":    nil,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
