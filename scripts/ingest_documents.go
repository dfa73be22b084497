package main

import (
	"context"
	"log"

	"alfredoptarigan/exam-grader/internal/config"
	"alfredoptarigan/exam-grader/internal/services"
)

// Ingests rubric and examiner-guideline PDFs into Qdrant so grading
// prompts can be enriched with their content.
func main() {
	log.Println("🚀 Starting rubric ingestion...")

	cfg := config.Load()

	geminiService, err := services.NewGeminiService(
		cfg.Gemini.APIKey,
		cfg.Gemini.Model,
		cfg.Worker.RetryMaxAttempts,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}

	if err := qdrantService.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize collection: %v", err)
	}

	pdfParser := services.NewPDFParserService()
	chunker := services.NewTextChunker()

	ctx := context.Background()

	documents := []struct {
		Path    string
		DocType string
		Name    string
	}{
		{
			Path:    "./reference_docs/grading_rubric.pdf",
			DocType: "grading_rubric",
			Name:    "Grading Rubric",
		},
		{
			Path:    "./reference_docs/exam_guidelines.pdf",
			DocType: "exam_guidelines",
			Name:    "Examiner Guidelines",
		},
	}

	for _, doc := range documents {
		log.Printf("📄 Ingesting %s...", doc.Name)

		text, err := pdfParser.ExtractText(doc.Path)
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", doc.Name, err)
			continue
		}

		chunks := chunker.ChunkText(text, 1000, 200)
		log.Printf("✂️  Split %s into %d chunks", doc.Name, len(chunks))

		for i, chunk := range chunks {
			embedding, err := geminiService.GenerateEmbedding(ctx, chunk)
			if err != nil {
				log.Printf("⚠️  Failed to embed chunk %d of %s: %v", i+1, doc.Name, err)
				continue
			}

			if err := qdrantService.UpsertDocument(ctx, doc.DocType, doc.DocType, chunk, embedding); err != nil {
				log.Printf("⚠️  Failed to upsert chunk %d of %s: %v", i+1, doc.Name, err)
				continue
			}
		}

		log.Printf("✅ Ingested %s", doc.Name)
	}

	log.Println("✅ Rubric ingestion complete")
}
