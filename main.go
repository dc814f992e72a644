package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"fluxo-board/api"
	"fluxo-board/board"
	"fluxo-board/domain"
	"fluxo-board/remote"
)

// logNotifier surfaces rejected moves that were rolled back locally.
type logNotifier struct {
	logger *log.Logger
}

func (n logNotifier) MoveFailed(intent domain.MoveIntent, err error) {
	n.logger.WithFields(log.Fields{
		"taskId": intent.TaskID,
		"stepId": intent.StepID,
	}).Warnf("move rejected, board reverted: %v", err)
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	tasksAPIURL := os.Getenv("TASKS_API_URL")
	serviceToken := os.Getenv("SERVICE_TOKEN")
	if tasksAPIURL == "" || serviceToken == "" {
		log.Fatal("missing tasks API config")
	}
	workspaceID, err := strconv.ParseInt(os.Getenv("WORKSPACE_ID"), 10, 64)
	if err != nil || workspaceID <= 0 {
		log.Fatalf("invalid WORKSPACE_ID: %v", err)
	}
	scope := domain.Scope{WorkspaceID: workspaceID}
	if v := os.Getenv("SPRINT_ID"); v != "" {
		sprintID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || sprintID <= 0 {
			log.Fatalf("invalid SPRINT_ID: %v", err)
		}
		scope.SprintID = &sprintID
	}

	var seedSteps []int64
	if v := os.Getenv("SEED_STEPS"); v != "" {
		for _, part := range strings.Split(v, ",") {
			stepID, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || stepID <= 0 {
				log.Fatalf("invalid SEED_STEPS entry %q", part)
			}
			seedSteps = append(seedSteps, stepID)
		}
	}

	client, err := remote.New(tasksAPIURL, remote.Session{Token: serviceToken})
	if err != nil {
		log.Fatalf("tasks API client: %v", err)
	}

	var repo board.Repository = client
	var mover board.Mover = client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		ttl := 5 * time.Minute
		if v := os.Getenv("CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid CACHE_TTL: %v", err)
			}
			ttl = d
		}
		cache := remote.NewCache(client, redis.NewClient(redisOpts), scope, ttl)
		repo = cache
		mover = cache
	}

	localAuth := os.Getenv("LOCAL_AUTH_MODE") == "hs256"
	var auth *api.Auth
	if localAuth {
		secret := os.Getenv("LOCAL_AUTH_SHARED_SECRET")
		if secret == "" {
			log.Fatal("missing LOCAL_AUTH_SHARED_SECRET")
		}
		auth = api.NewAuth(api.AuthConfig{LocalSecret: []byte(secret)})
	} else {
		jwtAudience := os.Getenv("JWT_AUDIENCE")
		jwtDomain := os.Getenv("JWT_DOMAIN")
		if jwtAudience == "" || jwtDomain == "" {
			log.Fatal("missing JWT config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", jwtDomain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(api.AuthConfig{
			JWKS:     jwks,
			Audience: jwtAudience,
			Issuer:   "https://" + jwtDomain + "/",
		})
	}

	logger := log.New()
	store := board.NewStore(seedSteps)
	facade := board.NewFacade(store, repo, logger)
	reconciler := board.NewReconciler(store, mover, logNotifier{logger: logger}, logger)

	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := facade.Reload(loadCtx, scope); err != nil {
		logger.Warnf("initial board load failed, starting empty: %v", err)
	}
	cancel()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, store, facade, reconciler, auth, scope, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
