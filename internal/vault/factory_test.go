package vault

import (
	"testing"

	"plantly/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr bool
	}{
		{
			name:    "memory vault",
			cfg:     config.StorageConfig{Type: "memory", Name: "test-memory"},
			wantErr: false,
		},
		{
			name:    "filesystem vault",
			cfg:     config.StorageConfig{Type: "filesystem", Name: "test-fs", FSVaultRoot: t.TempDir()},
			wantErr: false,
		},
		{
			name:    "filesystem vault without root",
			cfg:     config.StorageConfig{Type: "filesystem", Name: "test-fs"},
			wantErr: true,
		},
		{
			name:    "s3 vault without bucket",
			cfg:     config.StorageConfig{Type: "s3", Name: "test-s3"},
			wantErr: true,
		},
		{
			name:    "unknown vault type",
			cfg:     config.StorageConfig{Type: "unknown", Name: "test-unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVaultFromConfig(tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				if got != nil {
					t.Error("NewVaultFromConfig() should return nil on error")
				}
				return
			}

			if err := got.ValidateSetup(); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}
