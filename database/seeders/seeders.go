package seeders

import (
	"log"

	"coachdesk_go/database"
	"coachdesk_go/models"
	"coachdesk_go/utils"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedUsers()
	SeedTeachers()
	SeedCourses()

	log.Println("Database seeding completed successfully!")
}

// SeedUsers seeds the users table
func SeedUsers() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	defaults := []struct {
		username string
		password string
		email    string
		role     string
	}{
		{"owner", "owner123!", "owner@coachdesk.local", "owner"},
		{"admin", "admin123!", "admin@coachdesk.local", "admin"},
	}

	for _, d := range defaults {
		hashed, err := utils.HashPassword(d.password)
		if err != nil {
			log.Printf("Error hashing password for %s: %v", d.username, err)
			continue
		}
		user := models.User{
			Username: d.username,
			Password: hashed,
			Email:    d.email,
			Role:     d.role,
			Status:   "active",
		}
		if err := database.DB.Create(&user).Error; err != nil {
			log.Printf("Error seeding user %s: %v", d.username, err)
		}
	}

	log.Println("Users seeded successfully")
}

// SeedTeachers seeds one teacher with a linked login
func SeedTeachers() {
	var count int64
	database.DB.Model(&models.Teacher{}).Count(&count)
	if count > 0 {
		log.Println("Teachers already seeded, skipping...")
		return
	}

	hashed, err := utils.HashPassword("teacher123!")
	if err != nil {
		log.Printf("Error hashing teacher password: %v", err)
		return
	}
	user := models.User{
		Username: "rsharma",
		Password: hashed,
		Email:    "rsharma@coachdesk.local",
		Role:     "teacher",
		Status:   "active",
	}
	if err := database.DB.Create(&user).Error; err != nil {
		log.Printf("Error seeding teacher user: %v", err)
		return
	}

	teacher := models.Teacher{
		UserID:          user.ID,
		FirstName:       "Ravi",
		LastName:        "Sharma",
		Nickname:        "RS",
		MonthlySalary:   45000,
		Specializations: "Mathematics, Physics",
		Active:          true,
	}
	if err := database.DB.Create(&teacher).Error; err != nil {
		log.Printf("Error seeding teacher: %v", err)
	}

	log.Println("Teachers seeded successfully")
}

// SeedCourses seeds the course catalog
func SeedCourses() {
	var count int64
	database.DB.Model(&models.Course{}).Count(&count)
	if count > 0 {
		log.Println("Courses already seeded, skipping...")
		return
	}

	courses := []models.Course{
		{
			Name:        "Foundation Batch",
			Code:        "FOUND",
			Description: "Class 9-10 foundation course covering maths and science",
			Level:       "foundation",
			DurationWks: 40,
			Fee:         24000,
			Status:      "active",
		},
		{
			Name:        "JEE Mains Intensive",
			Code:        "JEE-M",
			Description: "One year intensive preparation for JEE Mains",
			Level:       "advanced",
			DurationWks: 48,
			Fee:         85000,
			Status:      "active",
		},
		{
			Name:        "NEET Crash Course",
			Code:        "NEET-C",
			Description: "Twelve week revision sprint before the NEET exam",
			Level:       "crash",
			DurationWks: 12,
			Fee:         30000,
			Status:      "active",
		},
	}

	for _, course := range courses {
		if err := database.DB.Create(&course).Error; err != nil {
			log.Printf("Error seeding course %s: %v", course.Code, err)
		}
	}

	log.Println("Courses seeded successfully")
}
