package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/hiresense/interview-engine/internal/config"
	"github.com/hiresense/interview-engine/internal/logger"
	"github.com/hiresense/interview-engine/internal/service"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Mint Interview Invite Token ===")

	// Candidate Reference
	fmt.Print("Enter Candidate Ref: ")
	candidateRef, _ := reader.ReadString('\n')
	candidateRef = strings.TrimSpace(candidateRef)
	if candidateRef == "" {
		fmt.Println("Error: Candidate ref is required")
		return
	}

	// Name
	fmt.Print("Enter Candidate Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Skills
	fmt.Print("Enter Skills (comma-separated, optional): ")
	skillsLine, _ := reader.ReadString('\n')
	var skills []string
	for _, s := range strings.Split(skillsLine, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}

	// Signing Secret
	// If INVITE_SECRET was not provided via env, prompt for it without echo.
	if os.Getenv("INVITE_SECRET") == "" {
		fmt.Print("Enter Invite Secret: ")
		byteSecret, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Println("\nError reading secret")
			return
		}
		fmt.Println() // Newline after hidden input
		cfg.InviteSecret = string(byteSecret)
	}
	if len(cfg.InviteSecret) < 8 {
		fmt.Println("Error: Invite secret must be at least 8 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	inviteService := service.NewInviteService(cfg)

	token, err := inviteService.CreateToken(candidateRef, name, skills)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign invite token")
	}

	fmt.Printf("\nSuccess! Invite for '%s' (%s), valid for %s:\n\n%s\n", name, candidateRef, cfg.InviteExpiry, token)
}
