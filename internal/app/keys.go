package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/studymate/studymate/pkg/cryptox"
	"github.com/studymate/studymate/pkg/jwtx"
)

// initSigningCodec builds the process-wide token codec.
//
// With STUDYMATE_SIGNING_KEY_FILE set, the Ed25519 key is loaded from that
// PKCS8 PEM file and tokens survive restarts; a missing or corrupt file is a
// startup fatal rather than a silent fallback. Without it, an ephemeral key
// is generated and every previously issued token becomes invalid.
func initSigningCodec(cfg Config, logger *slog.Logger) (*jwtx.Codec, error) {
	var pemKey []byte

	if cfg.SigningKeyFile != "" {
		var err error
		pemKey, err = os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read signing key %s: %w", cfg.SigningKeyFile, err)
		}
		logger.Info("signing key loaded", "path", cfg.SigningKeyFile)
	} else {
		var err error
		pemKey, err = cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("generate ephemeral signing key: %w", err)
		}
		logger.Warn("ephemeral signing key generated; all previously issued tokens are now invalid")
	}

	codec, err := jwtx.NewCodec("primary", pemKey, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("initialize token codec: %w", err)
	}
	if err := codec.Validate(); err != nil {
		return nil, fmt.Errorf("validate token codec: %w", err)
	}

	return codec, nil
}
