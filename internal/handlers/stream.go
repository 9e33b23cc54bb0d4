package handlers

import (
	"context"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/services"
)

// streamUpdates serves a subscription as Server-Sent Events until the
// client goes away. Only the newest pending update is kept.
func streamUpdates[T any](c *gin.Context, event string, open func(ctx context.Context, onChange func(T)) (*services.Subscription, error)) {
	ctx := c.Request.Context()
	updates := make(chan T, 1)
	push := func(v T) {
		for {
			select {
			case updates <- v:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}

	sub, err := open(ctx, push)
	if err != nil {
		writeError(c, err)
		return
	}
	defer sub.Unsubscribe()

	c.Header("Cache-Control", "no-store")
	c.Stream(func(w io.Writer) bool {
		select {
		case v := <-updates:
			// gin only JSON-encodes structs, maps and slices; a nil pointer
			// would go out as "<nil>".
			b, err := json.Marshal(v)
			if err != nil {
				return false
			}
			c.SSEvent(event, string(b))
			return true
		case <-sub.Done():
			return false
		case <-ctx.Done():
			return false
		}
	})
}
