package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limiterRig(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(rps, burst, KeyByUserOrIP())
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func hit(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	r := limiterRig(0.0001, 2) // effectively no refill during the test

	if w := hit(r, "1.2.3.4"); w.Code != http.StatusOK {
		t.Fatalf("first: %d", w.Code)
	}
	if w := hit(r, "1.2.3.4"); w.Code != http.StatusOK {
		t.Fatalf("second: %d", w.Code)
	}
	w := hit(r, "1.2.3.4")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third: %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("missing Retry-After header")
	}
	if body := w.Body.String(); body == "" || !json429(body) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func json429(body string) bool {
	return body == `{"message":"Too many requests","success":false}` ||
		body == `{"success":false,"message":"Too many requests"}`
}

func TestRateLimiter_BucketsAreIndependent(t *testing.T) {
	r := limiterRig(0.0001, 1)

	if w := hit(r, "1.1.1.1"); w.Code != http.StatusOK {
		t.Fatalf("a first: %d", w.Code)
	}
	if w := hit(r, "1.1.1.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("a second: %d", w.Code)
	}
	// a different client is unaffected
	if w := hit(r, "2.2.2.2"); w.Code != http.StatusOK {
		t.Fatalf("b first: %d", w.Code)
	}
}

func TestRateLimiter_RefillAllowsLater(t *testing.T) {
	r := limiterRig(50, 1) // 50 tokens/sec: one 20ms wait refills

	if w := hit(r, "3.3.3.3"); w.Code != http.StatusOK {
		t.Fatalf("first: %d", w.Code)
	}
	if w := hit(r, "3.3.3.3"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", w.Code)
	}
	time.Sleep(40 * time.Millisecond)
	if w := hit(r, "3.3.3.3"); w.Code != http.StatusOK {
		t.Fatalf("after refill: %d", w.Code)
	}
}

func TestKeyByUserOrIP_PrefersUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fn := KeyByUserOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "9.9.9.9:1"
	if got := fn(c); got != "ip:9.9.9.9" {
		t.Fatalf("anonymous key = %q", got)
	}

	c.Set("userID", "u1")
	if got := fn(c); got != "user:u1" {
		t.Fatalf("authenticated key = %q", got)
	}
}

func TestRateLimiter_ConcurrentLookupsSafe(t *testing.T) {
	rl := NewRateLimiter(1000, 10, KeyByUserOrIP())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k" + string(rune('a'+i%8))
			_ = rl.getVisitor(key).Allow()
		}(i)
	}
	wg.Wait()
}
