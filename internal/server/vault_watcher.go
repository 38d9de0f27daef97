package server

import (
	"fmt"
	"sync"
	"time"

	"interviewprep/internal/config"
	"interviewprep/internal/errors"
)

// SecretSource is the part of the Vault client the key watcher needs
type SecretSource interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

var _ SecretSource = (*config.VaultClient)(nil)

// KeyReloadCallback receives the new access keys, or the error that
// prevented reading them
type KeyReloadCallback func(keys []string, err error)

// KeyWatcher polls the Vault secret holding the server access keys and
// hands the new list to its callback whenever the secret version grows.
type KeyWatcher struct {
	mu sync.RWMutex

	client         SecretSource
	secretPath     string
	pollInterval   time.Duration
	reloadCallback KeyReloadCallback
	logger         *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
}

// NewKeyWatcher creates a watcher. initialVersion is the version already
// applied at startup; 0 makes the first poll deliver the keys.
func NewKeyWatcher(client SecretSource, secretPath string, pollInterval time.Duration, initialVersion int64, reloadCallback KeyReloadCallback, logger *errors.Logger) *KeyWatcher {
	return &KeyWatcher{
		client:         client,
		secretPath:     secretPath,
		pollInterval:   pollInterval,
		reloadCallback: reloadCallback,
		logger:         logger,
		stopChan:       make(chan struct{}),
		lastVersion:    initialVersion,
	}
}

// Start begins polling Vault for secret changes
func (kw *KeyWatcher) Start() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if kw.running {
		return fmt.Errorf("key watcher is already running")
	}
	if kw.pollInterval <= 0 {
		return fmt.Errorf("key watcher poll interval must be positive")
	}
	kw.running = true
	go kw.pollLoop()
	kw.logger.Info("Vault key watcher started", "secret_path", kw.secretPath, "poll_interval", kw.pollInterval)
	return nil
}

// Stop stops the watcher
func (kw *KeyWatcher) Stop() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if !kw.running {
		return nil
	}
	close(kw.stopChan)
	kw.running = false
	kw.logger.Info("Vault key watcher stopped")
	return nil
}

func (kw *KeyWatcher) pollLoop() {
	ticker := time.NewTicker(kw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			kw.poll()
		case <-kw.stopChan:
			return
		}
	}
}

// poll runs one check and delivers new keys to the callback
func (kw *KeyWatcher) poll() {
	changed, err := kw.checkForUpdates()
	if err != nil {
		kw.logger.LogError(err, "Failed to check Vault for updates")
		return
	}
	if !changed {
		return
	}

	kw.logger.Info("Vault secret changed, fetching new access keys", "secret_path", kw.secretPath)
	keys, err := kw.client.GetStringSliceSecret(kw.secretPath, "keys")
	if err != nil {
		kw.logger.LogError(err, "Failed to fetch access keys from Vault")
		kw.reloadCallback(nil, err)
		return
	}
	kw.reloadCallback(keys, nil)
}

// checkForUpdates checks if the Vault secret version has changed
func (kw *KeyWatcher) checkForUpdates() (bool, error) {
	secret, err := kw.client.GetSecretV2(kw.secretPath)
	if err != nil {
		return false, fmt.Errorf("failed to read secret: %w", err)
	}

	kw.mu.Lock()
	defer kw.mu.Unlock()
	if secret.Version > kw.lastVersion {
		kw.lastVersion = secret.Version
		return true, nil
	}
	return false, nil
}

// Status returns the current status of the watcher for the stats endpoint
func (kw *KeyWatcher) Status() map[string]any {
	kw.mu.RLock()
	defer kw.mu.RUnlock()
	return map[string]any{
		"running":       kw.running,
		"poll_interval": kw.pollInterval.String(),
		"secret_path":   kw.secretPath,
		"last_version":  kw.lastVersion,
	}
}
