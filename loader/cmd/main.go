package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rag/chunker"
	"rag/loader/internal"
	"rag/model"
	"rag/service"
	"rag/store"

	"github.com/joho/godotenv"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
	var (
		listFlag   = flag.Bool("list", false, "list stored documents")
		deleteFlag = flag.String("delete", "", "delete a document by id")
		allFlag    = flag.Bool("all", false, "process every markdown file under the docs directory")
		dirFlag    = flag.String("dir", "", "process one subfolder of the docs directory")
	)
	flag.Parse()

	ctx := context.Background()

	pool, err := store.NewPostgresStore(ctx, connString())
	if err != nil {
		log.Fatal("error to connect to Postgres database: ", err)
	}
	defer pool.Close()

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables: ", err)
	}

	embedder := model.NewVoyageClient()
	if !embedder.Configured() {
		log.Fatal("VOYAGE_API_KEY is missing or invalid, set it in .env")
	}

	svc := service.New(pool, embedder)
	docsDir := os.Getenv("DOCS_DIR")
	if docsDir == "" {
		docsDir = "docs"
	}

	switch {
	case *listFlag:
		listDocuments(ctx, svc)
	case *deleteFlag != "":
		if err := svc.DeleteDocument(ctx, *deleteFlag); err != nil {
			log.Fatal("delete failed: ", err)
		}
		fmt.Printf("deleted document %s\n", *deleteFlag)
	case *allFlag:
		processDirectory(ctx, svc, docsDir, docsDir)
	case *dirFlag != "":
		processDirectory(ctx, svc, filepath.Join(docsDir, *dirFlag), docsDir)
	case flag.NArg() == 1:
		if err := processFile(ctx, svc, flag.Arg(0), filepath.Base(flag.Arg(0))); err != nil {
			log.Fatal("processing failed: ", err)
		}
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func processFile(ctx context.Context, svc *service.Service, path, name string) error {
	if !strings.HasSuffix(path, ".md") {
		return fmt.Errorf("only markdown files are supported: %s", path)
	}

	content, err := internal.ReadMarkdown(path)
	if err != nil {
		return err
	}

	result, err := svc.ProcessDocument(ctx, content, service.ProcessOptions{DocumentName: name})
	if err != nil {
		return err
	}

	tokens, err := chunker.TokenCount(content)
	if err != nil {
		tokens = 0
	}
	fmt.Printf("done: %s (%d chunks, avg %d chars, ~%d tokens)\n",
		result.DocumentID, result.TotalChunks, result.Stats.AvgLength, tokens)
	return nil
}

// processDirectory ingests every markdown file under dir sequentially,
// skipping names that already exist among active documents and pausing
// between documents to stay inside the shared provider quota.
func processDirectory(ctx context.Context, svc *service.Service, dir, baseDir string) {
	files, err := internal.FindMarkdownFiles(dir, baseDir)
	if err != nil {
		log.Fatal("error reading docs directory: ", err)
	}

	existing, err := svc.ListDocuments(ctx)
	if err != nil {
		log.Fatal("error listing documents: ", err)
	}
	existingNames := make(map[string]struct{}, len(existing))
	for _, doc := range existing {
		existingNames[doc.Name] = struct{}{}
	}

	var toProcess []internal.MarkdownFile
	skipped := 0
	for _, f := range files {
		if _, ok := existingNames[f.Name]; ok {
			skipped++
			continue
		}
		toProcess = append(toProcess, f)
	}

	fmt.Printf("found %d markdown files, %d already processed, %d to go\n",
		len(files), skipped, len(toProcess))

	processed, failed := 0, 0
	for i, f := range toProcess {
		fmt.Printf("[%d/%d] %s\n", i+1, len(toProcess), f.Name)
		if err := processFile(ctx, svc, f.Path, f.Name); err != nil {
			fmt.Printf("failed: %s: %v\n", f.Name, err)
			failed++
		} else {
			processed++
		}

		if i < len(toProcess)-1 {
			fmt.Printf("waiting %s before next document...\n", service.DocumentDelay)
			time.Sleep(service.DocumentDelay)
		}
	}

	fmt.Printf("processed %d/%d documents (%d failed)\n", processed, len(toProcess), failed)
}

func listDocuments(ctx context.Context, svc *service.Service) {
	docs, err := svc.ListDocuments(ctx)
	if err != nil {
		log.Fatal("error listing documents: ", err)
	}
	if len(docs) == 0 {
		fmt.Println("no documents stored")
		return
	}
	for _, doc := range docs {
		fmt.Printf("%-40s %-30s %4d chunks  %s\n",
			doc.ID, doc.Name, doc.TotalChunks, doc.CreatedAt.Format("2006-01-02"))
	}
}

func connString() string {
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
}

func mustLoadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}
}
