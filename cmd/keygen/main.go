// Package main writes the RSA key pairs the gateway signs and verifies tokens with.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/edgegate/edgegate/internal/auth"
	"github.com/edgegate/edgegate/internal/config"
)

func main() {
	bits := flag.Int("bits", 2048, "RSA key size")
	force := flag.Bool("force", false, "overwrite existing key files")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	for _, target := range []struct {
		name  string
		files auth.KeyFiles
	}{
		{"access", cfg.Auth.AccessKey},
		{"refresh", cfg.Auth.RefreshKey},
	} {
		if err := generate(target.files, *bits, *force); err != nil {
			log.Fatal().Err(err).Str("key", target.name).Msg("key generation failed")
		}
		log.Info().
			Str("key", target.name).
			Str("private", target.files.PrivatePath).
			Str("public", target.files.PublicPath).
			Msg("key pair written")
	}
}

func generate(files auth.KeyFiles, bits int, force bool) error {
	if !force {
		if _, err := os.Stat(files.PrivatePath); err == nil {
			return fmt.Errorf("%s exists, pass -force to replace it", files.PrivatePath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	kp, err := auth.GenerateKeyPair(bits)
	if err != nil {
		return err
	}
	return auth.WriteKeyPair(kp, files)
}
