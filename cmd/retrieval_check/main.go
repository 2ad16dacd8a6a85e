package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"llm-chat/internal/config"
	"llm-chat/internal/db"
	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/repository"
	"llm-chat/internal/service"
)

// Scenario guarda un documento con un nivel y consulta con el nivel del lector.
type Scenario struct {
	Name        string
	Document    string
	DocLevel    domain.SecurityLevel
	Query       string
	ReaderLevel domain.SecurityLevel
	ShouldMatch bool
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	docRepo := repository.NewPgDocumentRepository(pool)
	llmClient := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, nil)
	docSvc := service.NewDocumentService(nil, docRepo, llmClient)
	kb := service.NewVectorKnowledgeBase(docRepo, llmClient)

	scenarios := []Scenario{
		{
			Name:        "Documento público",
			Document:    "El comedor de la oficina abre de 11:30 a 14:00 de lunes a viernes.",
			DocLevel:    domain.SecurityLow,
			Query:       "¿A qué hora abre el comedor?",
			ReaderLevel: domain.SecurityLow,
			ShouldMatch: true,
		},
		{
			Name:        "Nivel alto ve documentos medios",
			Document:    "El presupuesto del proyecto Atlas para el segundo trimestre es de 1,2 millones.",
			DocLevel:    domain.SecurityMid,
			Query:       "presupuesto del proyecto Atlas",
			ReaderLevel: domain.SecurityHigh,
			ShouldMatch: true,
		},
		{
			Name:        "Nivel bajo no ve documentos altos",
			Document:    "La contraseña maestra del servidor de respaldo se rota cada 30 días.",
			DocLevel:    domain.SecurityHigh,
			Query:       "rotación de la contraseña maestra del servidor de respaldo",
			ReaderLevel: domain.SecurityLow,
			ShouldMatch: false,
		},
	}

	passed := 0
	total := len(scenarios)

	for _, sc := range scenarios {
		fmt.Printf("=== Ejecutando: %s ===\n", sc.Name)

		marker := uuid.NewString()
		content := fmt.Sprintf("%s [ref %s]", sc.Document, marker)
		if _, err := docSvc.Create(ctx, "retrieval_check", content, sc.DocLevel); err != nil {
			fmt.Printf("❌ FAIL [%s] store document: %v\n\n", sc.Name, err)
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		docs, err := kb.Search(runCtx, sc.Query, cfg.RetrievalTopK, cfg.RetrievalMinScore, sc.ReaderLevel)
		cancel()
		if err != nil {
			fmt.Printf("❌ FAIL [%s] search: %v\n\n", sc.Name, err)
			continue
		}

		fmt.Println("--- Documentos recuperados ---")
		matched := false
		for _, d := range docs {
			fmt.Printf("(%s, %.3f) %s\n", d.SecurityLevel, d.Score, d.Content)
			if strings.Contains(d.Content, marker) {
				matched = true
			}
		}
		fmt.Println("------------------------------")

		if matched == sc.ShouldMatch {
			fmt.Printf("✅ PASS [%s] esperado=%t matched=%t\n\n", sc.Name, sc.ShouldMatch, matched)
			passed++
		} else {
			fmt.Printf("❌ FAIL [%s] esperado=%t matched=%t\n\n", sc.Name, sc.ShouldMatch, matched)
		}
	}

	fmt.Printf("Tests: %d/%d pasaron\n", passed, total)
	if passed != total {
		os.Exit(1)
	}
}
