package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoService "github.com/allisson/credvault/internal/crypto/service"
)

// RunCreateMasterKey generates a 32-byte master key and prints the environment variables
// that load it. With a KMS key URI the key is encrypted by the KMS before printing and
// the raw key never leaves the process.
//
// For local development use kmsProvider="localsecrets" with kmsKeyURI="base64key://...",
// or leave both empty to print the plain base64 key.
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsProvider, kmsKeyURI string,
) error {
	if (kmsProvider == "") != (kmsKeyURI == "") {
		return fmt.Errorf("--kms-provider and --kms-key-uri are required together")
	}

	encoded, err := cryptoService.GenerateMasterKey(ctx, kmsService, kmsKeyURI)
	if err != nil {
		return err
	}

	logger.Info("master key generated", slog.Bool("kms", kmsProvider != ""))

	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	if kmsProvider != "" {
		_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=%q\n", kmsProvider)
		_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=%q\n", kmsKeyURI)
	} else {
		_, _ = fmt.Fprintln(writer, "# WARNING: plaintext master key, use a KMS provider in production")
	}
	_, _ = fmt.Fprintf(writer, "MASTER_KEY=%q\n", encoded)
	return nil
}
