package relayd

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/relayctl/internal/observability"
	"github.com/danmuck/relayctl/internal/relay"
)

// Admin is the HTTP surface for seeding and inspecting a relay's store.
type Admin struct {
	node    string
	store   *Store
	started time.Time
	router  *gin.Engine
}

func NewAdmin(node string, store *Store, corsOrigins []string) *Admin {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(node))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	a := &Admin{
		node:    node,
		store:   store,
		started: time.Now(),
		router:  r,
	}
	a.registerRoutes()
	return a
}

func (a *Admin) Router() *gin.Engine { return a.router }

// Serve blocks running the admin listener on addr.
func (a *Admin) Serve(addr string) error {
	return a.router.Run(addr)
}

// recordPayload is the admin-side shape of one record. Value is plain text;
// set Sign to have the relay attach the digest clients verify.
type recordPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Sign  bool   `json:"sign"`
}

func (a *Admin) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(a.started).String(),
			"node":   a.node,
		})
	})

	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router.GET("/fqdns", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"fqdns": a.store.FQDNs()})
	})

	a.router.GET("/records/:fqdn", func(c *gin.Context) {
		fqdn, ok := a.paramFQDN(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"fqdn":    fqdn.String(),
			"records": a.store.Lookup(fqdn),
		})
	})

	a.router.PUT("/records/:fqdn", func(c *gin.Context) {
		fqdn, ok := a.paramFQDN(c)
		if !ok {
			return
		}
		var payload []recordPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		records := make([]relay.Record, 0, len(payload))
		for _, p := range payload {
			if p.Key == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "record missing key"})
				return
			}
			rec := relay.Record{Key: p.Key, Value: []byte(p.Value)}
			if p.Sign {
				rec = SignRecord(rec)
			}
			records = append(records, rec)
		}
		a.store.Put(fqdn, records)
		log.Info().Str("node", a.node).Str("fqdn", fqdn.String()).Int("records", len(records)).Msg("store seeded")
		c.JSON(http.StatusOK, gin.H{"fqdn": fqdn.String(), "records": len(records)})
	})

	a.router.DELETE("/records/:fqdn", func(c *gin.Context) {
		fqdn, ok := a.paramFQDN(c)
		if !ok {
			return
		}
		a.store.Remove(fqdn)
		c.JSON(http.StatusOK, gin.H{"fqdn": fqdn.String()})
	})

	a.router.POST("/deny/:fqdn", func(c *gin.Context) {
		fqdn, ok := a.paramFQDN(c)
		if !ok {
			return
		}
		var body struct {
			Status uint32 `json:"status"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Status == relay.StatusOK {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nonzero status required"})
			return
		}
		a.store.Deny(fqdn, body.Status)
		c.JSON(http.StatusOK, gin.H{"fqdn": fqdn.String(), "status": body.Status})
	})

	a.router.DELETE("/deny/:fqdn", func(c *gin.Context) {
		fqdn, ok := a.paramFQDN(c)
		if !ok {
			return
		}
		a.store.Allow(fqdn)
		c.JSON(http.StatusOK, gin.H{"fqdn": fqdn.String()})
	})
}

func (a *Admin) paramFQDN(c *gin.Context) (relay.FQDN, bool) {
	fqdn, err := relay.ParseFQDN(c.Param("fqdn"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return relay.FQDN{}, false
	}
	return fqdn, true
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
