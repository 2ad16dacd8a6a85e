package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"llm-chat/internal/config"
	"llm-chat/internal/llm"
	"llm-chat/internal/reader"
	"llm-chat/internal/service"
	"llm-chat/internal/websearch"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	location, err := time.LoadLocation(cfg.SearchTimezone)
	if err != nil {
		location = time.UTC
	}

	llmClient := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, nil)
	webSvc := service.NewWebSearchService(nil, llmClient,
		websearch.NewDisabledSearcher("decision check does not search"),
		reader.NewHTTPFetcher(nil), reader.NewTextExtractor(),
		service.WebSearchConfig{Location: location, DecisionTimeout: cfg.DecisionTimeout},
	)

	scenarios := []Scenario{
		{Name: "Saludo", Question: "안녕하세요! 오늘 기분이 어때요?", ShouldSearch: false},
		{Name: "Aritmética", Question: "17 곱하기 23은 얼마야?", ShouldSearch: false},
		{Name: "Noticias recientes", Question: "오늘 코스피 지수 뉴스 알려줘", ShouldSearch: true, QueryHints: []string{"코스피"}},
		{Name: "Evento actual", Question: "이번 주 서울 날씨 관련 기사 있어?", ShouldSearch: true, QueryHints: []string{"서울", "날씨"}},
	}

	passed := 0
	for _, sc := range scenarios {
		v := evaluate(ctx, webSvc, sc)
		if v.Pass {
			passed++
			fmt.Printf("%s✅ PASS%s [%s] buscar=%t consulta=%q\n", colorGreen, colorReset, sc.Name, v.Searched, v.Query)
			continue
		}
		fmt.Printf("%s❌ FAIL%s [%s] %s\n", colorRed, colorReset, sc.Name, v.Reason)
	}

	fmt.Printf("Tests: %d/%d pasaron\n", passed, len(scenarios))
	if passed != len(scenarios) {
		os.Exit(1)
	}
}
