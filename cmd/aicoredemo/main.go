// Command aicoredemo wires the orchestration core end to end: a
// Prompt Manager and Cost Tracker over in-memory stores, real
// Anthropic/OpenAI chat model clients when API keys are present (a
// scripted stand-in otherwise), an Orchestrator, a graph-assembly
// Pipeline, and a job Pool — then submits one graph-generation job and
// polls it to completion. It exists to exercise the wiring, not as a
// service; the HTTP layer and persistent storage are out of scope.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/waynewangyuxuan/graphex-aicore/internal/cost"
	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/emit"
	"github.com/waynewangyuxuan/graphex-aicore/internal/graphgen"
	"github.com/waynewangyuxuan/graphex-aicore/internal/llm"
	"github.com/waynewangyuxuan/graphex-aicore/internal/llm/anthropic"
	"github.com/waynewangyuxuan/graphex-aicore/internal/llm/openai"
	"github.com/waynewangyuxuan/graphex-aicore/internal/metrics"
	"github.com/waynewangyuxuan/graphex-aicore/internal/orchestrator"
	"github.com/waynewangyuxuan/graphex-aicore/internal/prompt"
	"github.com/waynewangyuxuan/graphex-aicore/internal/store"
	"github.com/waynewangyuxuan/graphex-aicore/pkg/jobs"
)

const sampleDocument = `Overview

Machine learning is a subset of artificial intelligence focused on
building systems that improve from experience without being explicitly
programmed. Neural networks are a family of machine learning models
loosely inspired by biological brains.

Learning Paradigms

Supervised learning trains a model on labeled examples. Unsupervised
learning finds structure in unlabeled data. Reinforcement learning
trains an agent via reward signals from an environment.

Deep Learning

Deep learning uses neural networks with many layers. It underlies most
modern advances in computer vision and natural language processing.`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	cache := store.NewMemKVStore()
	ledger := store.NewMemLedger()

	promptManager := prompt.New(prompt.NewRegistry(prompt.DefaultTemplates()...), cache)
	costTracker := cost.New(cache, ledger, cost.WithMetrics(m))

	models := map[domain.Model]llm.ChatModel{
		domain.ModelClaudeHaiku:   chatModelOrDemo(os.Getenv("ANTHROPIC_API_KEY"), anthropicModel),
		domain.ModelClaudeSonnet4: chatModelOrDemo(os.Getenv("ANTHROPIC_API_KEY"), anthropicModel),
		domain.ModelGPT4Turbo:     chatModelOrDemo(os.Getenv("OPENAI_API_KEY"), openaiModel),
		domain.ModelGPT4Vision:    chatModelOrDemo(os.Getenv("OPENAI_API_KEY"), openaiModel),
	}

	emitter := emit.NewLogEmitter(logger)
	defer func() {
		if err := emitter.Flush(ctx); err != nil {
			slog.Error("flushing emitter", "error", err)
		}
	}()

	orch := orchestrator.New(promptManager, costTracker, models, cache, orchestrator.WithMetrics(m), orchestrator.WithEmitter(emitter))
	pipeline := graphgen.NewPipeline(orch)

	pool := jobs.New(ctx, 16, 4, jobs.WithMetrics(m))
	defer pool.Close()

	jobID, err := pool.Submit(jobs.Spec{Func: func(ctx context.Context, report func(jobs.Progress)) (any, error) {
		return pipeline.GenerateGraph(ctx, graphgen.GenerateGraphRequest{
			UserID:        "demo-user",
			DocumentID:    "demo-doc",
			DocumentTitle: "Introduction to Machine Learning",
			DocumentText:  sampleDocument,
		}, func(p emit.Progress) {
			report(jobs.Progress{Stage: p.Stage, Percentage: p.Percentage, Message: p.Message})
		})
	}})
	if err != nil {
		log.Fatalf("submit: %v", err)
	}

	fmt.Printf("submitted job %s\n", jobID)
	for {
		job, ok := pool.Status(jobID)
		if !ok {
			log.Fatalf("job %s vanished", jobID)
		}
		fmt.Printf("state=%s stage=%s pct=%.0f%%\n", job.State, job.Progress.Stage, job.Progress.Percentage)

		switch job.State {
		case jobs.StateCompleted:
			graph := job.Result.(domain.GraphData)
			fmt.Printf("generated %d nodes, %d edges, degraded=%v\n", len(graph.Nodes), len(graph.Edges), graph.Metadata["degraded"])
			return
		case jobs.StateFailed:
			log.Fatalf("job failed: %v", job.Err)
		case jobs.StateCancelled:
			log.Fatalf("job cancelled")
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func anthropicModel(key string) llm.ChatModel { return anthropic.New(key) }
func openaiModel(key string) llm.ChatModel    { return openai.New(key) }

// chatModelOrDemo returns a real provider client when an API key is
// present, otherwise a canned model that returns a fixed, well-formed
// graph so the wiring can be exercised without network access or a key.
func chatModelOrDemo(key string, real func(string) llm.ChatModel) llm.ChatModel {
	if key != "" {
		return real(key)
	}
	return demoModel{}
}

type demoModel struct{}

const demoGraphJSON = `{
  "nodes": [
    {"id":"1","title":"Machine Learning","description":"A subset of AI that learns from data."},
    {"id":"2","title":"Artificial Intelligence"},
    {"id":"3","title":"Neural Networks"},
    {"id":"4","title":"Supervised Learning"},
    {"id":"5","title":"Unsupervised Learning"},
    {"id":"6","title":"Reinforcement Learning"},
    {"id":"7","title":"Deep Learning"}
  ],
  "edges": [
    {"from":"1","to":"2","relationship":"subset-of"},
    {"from":"3","to":"1","relationship":"part-of"},
    {"from":"4","to":"1","relationship":"part-of"},
    {"from":"5","to":"1","relationship":"part-of"},
    {"from":"6","to":"1","relationship":"part-of"},
    {"from":"7","to":"3","relationship":"part-of"}
  ]
}`

func (demoModel) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	return llm.ChatResponse{
		Content: demoGraphJSON,
		Usage:   llm.Usage{InputTokens: 400, OutputTokens: 250},
	}, nil
}
