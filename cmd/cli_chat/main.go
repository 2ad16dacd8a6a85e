package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"llm-chat/internal/config"
	"llm-chat/internal/db"
	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/reader"
	"llm-chat/internal/repository"
	"llm-chat/internal/service"
	"llm-chat/internal/websearch"
)

const defaultCLIUser = "cli_user"

type app struct {
	in      *bufio.Reader
	userID  string
	threads *service.ThreadService
	chat    *service.ChatService
}

func main() {
	ctx := context.Background()
	in := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	if err := db.Ping(ctx, pool); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
	}

	threadRepo := repository.NewPgThreadRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	prefRepo := repository.NewPgPreferenceRepository(pool)
	docRepo := repository.NewPgDocumentRepository(pool)

	llmClient := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)

	searcher := websearch.NewDisabledSearcher("naver credentials not configured")
	if cfg.NaverClientID != "" && cfg.NaverClientSecret != "" {
		searcher = websearch.NewNaverSearcher(cfg.NaverClientID, cfg.NaverClientSecret, nil)
	}
	location, err := time.LoadLocation(cfg.SearchTimezone)
	if err != nil {
		location = time.UTC
	}

	threadSvc := service.NewThreadService(logger, threadRepo, messageRepo)
	chatSvc := service.NewChatService(service.ChatDependencies{
		Logger:   logger,
		Threads:  threadSvc,
		Messages: messageRepo,
		Contexts: service.NewContextService(messageRepo, prefRepo),
		Retrieval: service.NewRetrievalService(logger, service.NewVectorKnowledgeBase(docRepo, llmClient),
			cfg.RetrievalTopK, cfg.RetrievalMinScore, cfg.RetrievalTimeout),
		WebSearch: service.NewWebSearchService(logger, llmClient, searcher, reader.NewHTTPFetcher(nil), reader.NewTextExtractor(), service.WebSearchConfig{
			Location:       location,
			MaxResults:     cfg.WebResultCount,
			PageCharBudget: cfg.PageCharBudget,
		}),
		Streamer:          service.NewStreamer(logger, llmClient),
		Pool:              service.NewWorkerPool(2, time.Second),
		Locks:             service.NewMemoryThreadLock(),
		GenerationTimeout: cfg.GenerationTimeout,
	})

	userID := defaultCLIUser
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		userID = strings.TrimSpace(os.Args[1])
	}

	a := &app{in: in, userID: userID, threads: threadSvc, chat: chatSvc}
	for {
		thread, ok, err := a.pickThread(ctx)
		if err != nil {
			log.Fatalf("seleccionar hilo: %v", err)
		}
		if !ok {
			return
		}
		if err := a.chatLoop(ctx, thread); err != nil {
			log.Printf("error en chat: %v", err)
		}
	}
}

func (a *app) prompt(label string) string {
	fmt.Print(label)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "/quit"
	}
	return strings.TrimSpace(line)
}

func (a *app) pickThread(ctx context.Context) (domain.Thread, bool, error) {
	for {
		fmt.Printf("===== Hilos de %s =====\n", a.userID)
		threads, err := a.threads.List(ctx, a.userID, "", domain.Page{Number: 0, Size: 20})
		if err != nil {
			return domain.Thread{}, false, err
		}
		for i, t := range threads {
			fmt.Printf("[%d] %s (ID: %d, %s)\n", i+1, t.ChatName, t.ID, t.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Println("[N] Nuevo hilo")
		fmt.Println("[Q] Salir")

		choice := a.prompt("Selecciona un hilo: ")
		switch {
		case strings.EqualFold(choice, "Q"), choice == "/quit":
			return domain.Thread{}, false, nil
		case strings.EqualFold(choice, "N"):
			t, err := a.threads.Create(ctx, a.userID)
			return t, err == nil, err
		}
		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(threads) {
			fmt.Println("Seleccion invalida.")
			continue
		}
		return threads[idx-1], true, nil
	}
}

func (a *app) chatLoop(ctx context.Context, thread domain.Thread) error {
	fmt.Printf("\n--- %s ---\n", thread.ChatName)
	fmt.Println("Comandos: /history, /rename <nombre>, /auto, /edit <id> <texto>, /delete, /back")
	if err := a.printHistory(ctx, thread.ID); err != nil {
		return err
	}

	for {
		line := a.prompt("> ")
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		var (
			stream *service.Stream
			err    error
		)
		switch cmd {
		case "/back", "/quit":
			return nil
		case "/history":
			err = a.printHistory(ctx, thread.ID)
		case "/rename":
			var renamed domain.Thread
			if renamed, err = a.threads.Rename(ctx, thread.ID, a.userID, rest); err == nil {
				fmt.Printf("Renombrado a %q\n", renamed.ChatName)
			}
		case "/auto":
			stream, err = a.chat.AutoRename(ctx, thread.ID, a.userID)
		case "/edit":
			idRaw, text, _ := strings.Cut(strings.TrimSpace(rest), " ")
			id, convErr := strconv.ParseInt(idRaw, 10, 64)
			if convErr != nil {
				fmt.Println("Uso: /edit <id> <texto>")
				continue
			}
			stream, err = a.chat.EditMessage(ctx, thread.ID, id, a.userID, text)
		case "/delete":
			if err = a.threads.SoftDelete(ctx, thread.ID, a.userID); err == nil {
				fmt.Println("Hilo movido a la papelera.")
				return nil
			}
		default:
			stream, err = a.chat.SendMessage(ctx, thread.ID, a.userID, line)
		}
		if err != nil {
			fmt.Println(describe(err))
			continue
		}
		if stream != nil {
			render(stream)
		}
	}
}

func (a *app) printHistory(ctx context.Context, threadID int64) error {
	msgs, err := a.threads.Messages(ctx, threadID, a.userID, domain.Page{Number: 0, Size: 100})
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Printf("#%d %s: %s\n", m.ID, m.Role, m.Content)
	}
	return nil
}

// render imprime los fragmentos del asistente a medida que llegan.
func render(stream *service.Stream) {
	defer stream.Close()
	for ev := range stream.Events() {
		switch ev.Type {
		case domain.EventFragment:
			if ev.Role == domain.RoleUser {
				fmt.Printf("#%d (tú) registrado\n", ev.MessageID)
				continue
			}
			fmt.Print(ev.Content)
		case domain.EventError:
			fmt.Printf("\n[error] %s\n", ev.Content)
		case domain.EventDone:
			fmt.Println()
		}
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, service.ErrThreadBusy):
		return "El hilo está generando una respuesta, espera un momento."
	case errors.Is(err, service.ErrPoolSaturated):
		return "Servidor ocupado, intenta de nuevo."
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, service.ErrNotFound):
		return err.Error()
	default:
		return fmt.Sprintf("error: %v", err)
	}
}
