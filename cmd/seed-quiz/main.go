package main

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/database"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	quizRepo := repository.NewQuizRepository(pool)
	catalog := service.NewQuizCatalogService(quizRepo, rdb, cfg.QuizCacheTTL, log)

	fmt.Println("=== Seeding demo quizzes ===")

	limit := 20 * 60
	quizzes := []*model.QuizDefinition{
		{
			Title:     "Dasar Jaringan (Latihan)",
			Status:    model.QuizStatusPublished,
			Policy:    model.QuizPolicy{Mode: model.ModePractice, AllowMultipleAttempts: true},
			Questions: demoQuestions(),
		},
		{
			Title:  "Dasar Jaringan (Ujian)",
			Status: model.QuizStatusPublished,
			Policy: model.QuizPolicy{
				Mode:                      model.ModeExam,
				TimeLimitSeconds:          &limit,
				PauseAfterQuestions:       4,
				PauseDurationLimitSeconds: 300,
				ShuffleQuestions:          true,
				ShuffleOptions:            true,
				MaxAttempts:               2,
			},
			Questions: demoQuestions(),
		},
	}

	for _, q := range quizzes {
		if err := quizRepo.Create(ctx, q); err != nil {
			log.Fatal().Err(err).Str("title", q.Title).Msg("Failed to create quiz")
		}
		if err := catalog.Warm(ctx, q); err != nil {
			log.Warn().Err(err).Str("quiz_id", q.ID.String()).Msg("Failed to warm quiz cache")
		}
		fmt.Printf("Created %-28s id=%s mode=%s questions=%d\n", q.Title, q.ID, q.Policy.Mode, len(q.Questions))
	}

	fmt.Println("=== Seeding Complete ===")
}

func choices(ids ...string) []model.Option {
	opts := make([]model.Option, 0, len(ids))
	for _, id := range ids {
		opts = append(opts, model.Option{ID: id, Text: "Opsi " + id})
	}
	return opts
}

func demoQuestions() []model.CatalogQuestion {
	return []model.CatalogQuestion{
		{
			QuestionType:  model.QuestionTypeSingleChoice,
			Prompt:        "Lapisan OSI yang menangani routing adalah?",
			Options:       choices("a", "b", "c", "d"),
			CorrectAnswer: model.SingleChoiceAnswer{OptionID: "c"},
			OrderNum:      1,
		},
		{
			QuestionType:  model.QuestionTypeMultiChoice,
			Prompt:        "Pilih semua protokol lapisan transport.",
			Options:       choices("a", "b", "c", "d"),
			CorrectAnswer: model.MultiChoiceAnswer{OptionIDs: []string{"a", "b"}},
			OrderNum:      2,
		},
		{
			QuestionType:  model.QuestionTypeBoolean,
			Prompt:        "UDP menjamin urutan paket.",
			Options:       []model.Option{{ID: "true", Text: "Benar"}, {ID: "false", Text: "Salah"}},
			CorrectAnswer: model.BooleanAnswer{OptionID: "false"},
			OrderNum:      3,
		},
		{
			QuestionType: model.QuestionTypeMatching,
			Prompt:       "Pasangkan protokol dengan port bawaannya.",
			Options: []model.Option{
				{ID: "http", Text: "HTTP", Side: model.MatchSideLeft},
				{ID: "ssh", Text: "SSH", Side: model.MatchSideLeft},
				{ID: "dns", Text: "DNS", Side: model.MatchSideLeft},
				{ID: "p80", Text: "80", Side: model.MatchSideRight},
				{ID: "p22", Text: "22", Side: model.MatchSideRight},
				{ID: "p53", Text: "53", Side: model.MatchSideRight},
			},
			CorrectAnswer: model.MatchingAnswer{Pairs: []model.MatchPair{
				{LeftID: "http", RightID: "p80"},
				{LeftID: "ssh", RightID: "p22"},
				{LeftID: "dns", RightID: "p53"},
			}},
			OrderNum: 4,
		},
		{
			QuestionType:  model.QuestionTypeSingleChoice,
			Prompt:        "Alamat 192.168.1.0/24 memiliki berapa host yang dapat dipakai?",
			Options:       choices("a", "b", "c", "d"),
			CorrectAnswer: model.SingleChoiceAnswer{OptionID: "b"},
			OrderNum:      5,
		},
		{
			QuestionType:  model.QuestionTypeBoolean,
			Prompt:        "Switch bekerja pada lapisan data link.",
			Options:       []model.Option{{ID: "true", Text: "Benar"}, {ID: "false", Text: "Salah"}},
			CorrectAnswer: model.BooleanAnswer{OptionID: "true"},
			OrderNum:      6,
		},
		{
			QuestionType:  model.QuestionTypeMultiChoice,
			Prompt:        "Pilih alamat IP privat.",
			Options:       choices("a", "b", "c", "d"),
			CorrectAnswer: model.MultiChoiceAnswer{OptionIDs: []string{"a", "c", "d"}},
			OrderNum:      7,
		},
		{
			QuestionType:  model.QuestionTypeSingleChoice,
			Prompt:        "Perintah untuk menguji konektivitas ICMP adalah?",
			Options:       choices("a", "b", "c", "d"),
			CorrectAnswer: model.SingleChoiceAnswer{OptionID: "a"},
			OrderNum:      8,
		},
	}
}
