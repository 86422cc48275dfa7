package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"carebridge/controllers"
	"carebridge/middleware"
	"carebridge/models"
	"carebridge/pkg/cache"
	"carebridge/pkg/config"
	"carebridge/pkg/fhir"
	"carebridge/pkg/reminder"
	"carebridge/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	// config loads in init of pkg/config

	var (
		db  *gorm.DB
		err error
	)
	if config.DatabaseURL != "" {
		db, err = gorm.Open(postgres.Open(config.DatabaseURL), &gorm.Config{})
	} else {
		db, err = gorm.Open(sqlite.Open(config.SQLitePath), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.DoctorProfile{},
		&models.Appointment{},
		&models.ChatMessage{},
		&models.Notification{},
		&models.MedicalRecord{},
	); err != nil {
		log.Fatalf("failed migrate: %v", err)
	}

	middleware.SetRateLimitConfig(
		time.Duration(config.RateLimitWindowSeconds)*time.Second,
		config.RateLimitCapacity,
		config.UserConcurrencyLimit,
	)
	middleware.SetDuplicateTTL(time.Duration(config.DuplicateWindowSeconds) * time.Second)
	cache.Default().SetMaxItems(config.SenderCacheMaxItems)

	hub := controllers.NewHub()
	fhirClient := fhir.NewClient(config.FHIRBaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner := reminder.NewScanner(db, time.Duration(config.ReminderTickSeconds)*time.Second,
		func(conversationID, appointmentID, text string) {
			controllers.PostSystemMessage(db, hub, conversationID, appointmentID, text)
		})
	go scanner.Run(ctx)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, hub, fhirClient)
	r.Run(":" + config.Port)
}
