package middlewares

import (
	"context"
	"eduspace/src/lib"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const rateLimitWindow = 15 * time.Minute

func rateLimitMax() int64 {
	max, err := strconv.ParseInt(os.Getenv("RATE_LIMIT_MAX"), 10, 64)
	if err != nil || max <= 0 {
		return 100
	}
	return max
}

// RateLimiter counts requests per client IP in a fixed redis window
// across the whole API. Fails open when redis is unreachable.
func RateLimiter(ctx *gin.Context) {
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	key := fmt.Sprintf("ratelimit:%s", ctx.ClientIP())
	count, err := rd.Incr(context.Background(), key).Result()
	if err != nil {
		log.Printf("[redis] Error incrementing rate limit counter: %s\n", err.Error())
		return
	}
	if count == 1 {
		rd.Expire(context.Background(), key, rateLimitWindow)
	}
	if count > rateLimitMax() {
		ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many requests, please try again later"})
		return
	}
}
