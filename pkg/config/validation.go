package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags and the cross-section rules tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if cfg.Sink.Type == "fs" && cfg.Sink.FS.Path == "" {
		return fmt.Errorf("sink.fs.path is required when sink.type is fs")
	}
	if cfg.Sink.Type == "s3" && cfg.Sink.S3.Bucket == "" {
		return fmt.Errorf("sink.s3.bucket is required when sink.type is s3")
	}
	if (cfg.Sink.S3.AccessKeyID == "") != (cfg.Sink.S3.SecretAccessKey == "") {
		return fmt.Errorf("sink.s3.access_key_id and sink.s3.secret_access_key must be set together")
	}
	if cfg.Results.Type == "sqlite" && cfg.Results.SQLite.Path == "" {
		return fmt.Errorf("results.sqlite.path is required when results.type is sqlite")
	}
	if cfg.Results.Type == "postgres" && cfg.Results.Postgres.DSN == "" {
		return fmt.Errorf("results.postgres.dsn is required when results.type is postgres")
	}
	if cfg.Notify.MQTT.Broker != "" && cfg.Notify.MQTT.Topic == "" {
		return fmt.Errorf("notify.mqtt.topic is required when notify.mqtt.broker is set")
	}
	if _, ok := cfg.Cameras[DefaultCamera]; !ok {
		return fmt.Errorf("cameras.%s entry is required", DefaultCamera)
	}

	return nil
}

// ValidateRemote checks that the selected SMB share is fully described.
// Commands that never touch the share skip it.
func ValidateRemote(cfg *Config) error {
	s := cfg.ActiveSMB()
	section := "smb"
	if cfg.IsInternal {
		section = "smb_internal"
	}

	var missing []string
	if s.Host == "" {
		missing = append(missing, section+".host")
	}
	if s.Share == "" {
		missing = append(missing, section+".share")
	}
	if s.Username == "" {
		missing = append(missing, section+".username")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s'", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
