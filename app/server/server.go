package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"rag/app/api"
	"rag/model"
	"rag/service"
	"rag/store"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
}

func NewServer(addr string) *Server {
	return &Server{
		listenAddr: addr,
		logger:     slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()

	storer, err := newStore(ctx)
	if err != nil {
		log.Fatal("error to connect to document store: ", err)
		return
	}

	if err := storer.Init(ctx); err != nil {
		log.Fatal("error to create tables: ", err)
		return
	}

	svc := service.New(storer, model.NewVoyageClient())

	var (
		app          = fiber.New(config)
		checkHandler = api.NewCheckHandler()
		ragHandler   = api.NewRagHandler(svc)
		check        = app.Group("/check")
		apiv1        = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/documents", ragHandler.HandleProcessDocument)
	apiv1.Get("/documents", ragHandler.HandleListDocuments)
	apiv1.Delete("/documents/:id", ragHandler.HandleDeleteDocument)
	apiv1.Get("/documents/:id/chunks", ragHandler.HandleGetChunks)
	apiv1.Post("/search", ragHandler.HandleSearch)

	if err := app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}

// newStore connects to Postgres when PG_HOST is set, otherwise falls back to
// the in-memory store so the API can run without a database.
func newStore(ctx context.Context) (store.Storer, error) {
	host := os.Getenv("PG_HOST")
	if host == "" {
		slog.Default().Warn("PG_HOST is not set, using in-memory store")
		return store.NewMemoryStore(), nil
	}

	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
	return store.NewPostgresStore(ctx, connStr)
}
