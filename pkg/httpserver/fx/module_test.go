package httpserverfx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/JailtonJunior94/lexlog/pkg/httpserver"
	httpserverfx "github.com/JailtonJunior94/lexlog/pkg/httpserver/fx"
)

func TestModule(t *testing.T) {
	var srv httpserver.Server

	cfg := httpserverfx.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"

	app := fxtest.New(t,
		httpserverfx.Module,
		fx.Supply(cfg),
		fx.Supply(httpserverfx.Chain{func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Chain", "1")
				next.ServeHTTP(w, r)
			})
		}}),
		fx.Provide(fx.Annotate(
			httpserverfx.ProvideRoute(http.MethodGet, "/ping", func(w http.ResponseWriter, _ *http.Request) error {
				w.WriteHeader(http.StatusNoContent)
				return nil
			}),
			fx.ResultTags(`group:"routes"`),
		)),
		fx.Populate(&srv),
	)
	app.RequireStart()
	defer app.RequireStop()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Chain"))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("HTTP_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := httpserverfx.ConfigFromEnv()
	assert.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, httpserverfx.DefaultConfig().ReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, "5s", cfg.ShutdownTimeout.String())
}
