// Package main is a development utility for generating a random encryption
// secret suitable for the ENCRYPTION_SECRET environment variable. It prints
// the secret plus ready-to-paste env and compose lines so developers can set
// up a local instance quickly. Production deployments should generate and
// store the secret in their secrets manager instead.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
)

func main() {
	// 32 random bytes hex-encoded gives a 64 character secret, comfortably
	// above the 32 character minimum the server enforces.
	randomBytes := make([]byte, 32)
	_, err := rand.Read(randomBytes)
	if err != nil {
		log.Fatal(err)
	}

	secret := hex.EncodeToString(randomBytes)

	fmt.Println("==========================================================")
	fmt.Println("Encryption Secret Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nSecret: %s\n", secret)
	fmt.Println("\n==========================================================")
	fmt.Println("Shell:")
	fmt.Printf("\nexport ENCRYPTION_SECRET=%s\n", secret)
	fmt.Println("\ndocker-compose:")
	fmt.Printf("\n  environment:\n    ENCRYPTION_SECRET: %q\n", secret)
	fmt.Println("\n==========================================================")
	fmt.Println("Rotating this secret makes existing stored credentials")
	fmt.Println("undecryptable. Re-enter API keys after a rotation.")
	fmt.Println("==========================================================")
}
