package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/autopull/internal/gitrepo"
	pathutils "github.com/temirov/autopull/internal/utils/path"
)

const (
	// DefaultConfigurationFileName is the repository configuration file written next to the watcher.
	DefaultConfigurationFileName = ".autopull-config"

	configurationFilePermissionsConstant     = os.FileMode(0o600)
	temporaryFileSuffixConstant              = ".tmp"
	configurationReadErrorTemplateConstant   = "failed to read configuration file %s: %w"
	configurationParseErrorTemplateConstant  = "failed to parse configuration file %s: %w"
	configurationWriteErrorTemplateConstant  = "failed to write configuration file %s: %w"
	configurationRenameErrorTemplateConstant = "failed to replace configuration file %s: %w"
	missingFieldsErrorTemplateConstant       = "configuration is missing required fields: %s"
	missingFieldSeparatorConstant            = ", "
	storePathNotConfiguredMessageConstant    = "configuration file path not configured"

	gitHubTokenFieldNameConstant     = "github_token"
	repositoryOwnerFieldNameConstant = "repo_owner"
	repositoryNameFieldNameConstant  = "repo_name"
	repositoryURLFieldNameConstant   = "repo_url"

	// DefaultBranchName is assumed when a configuration omits the branch.
	DefaultBranchName = "main"

	gitHubHostNameConstant = "github.com"
)

// ErrStorePathNotConfigured indicates the store was constructed without a file path.
var ErrStorePathNotConfigured = errors.New(storePathNotConfiguredMessageConstant)

// RepositoryConfiguration captures everything required to watch and update one repository.
type RepositoryConfiguration struct {
	GitHubToken     string `json:"github_token"`
	RepositoryOwner string `json:"repo_owner"`
	RepositoryName  string `json:"repo_name"`
	RepositoryURL   string `json:"repo_url"`
	BranchName      string `json:"branch"`
	LocalPath       string `json:"local_path"`
	PostCommand     string `json:"post_command"`
}

// ValidationError reports required configuration fields that are empty.
type ValidationError struct {
	MissingFields []string
}

// Error lists the missing field names.
func (validationError ValidationError) Error() string {
	return fmt.Sprintf(missingFieldsErrorTemplateConstant, strings.Join(validationError.MissingFields, missingFieldSeparatorConstant))
}

// Store persists RepositoryConfiguration values as JSON on the local filesystem.
type Store struct {
	configurationFilePath string
	homeExpander          *pathutils.HomeExpander
}

// NewStore constructs a Store bound to the provided configuration file path.
func NewStore(configurationFilePath string) *Store {
	return &Store{
		configurationFilePath: strings.TrimSpace(configurationFilePath),
		homeExpander:          pathutils.NewHomeExpander(),
	}
}

// Path reports the configuration file location the store reads and writes.
func (store *Store) Path() string {
	return store.configurationFilePath
}

// Load reads the persisted configuration.
//
// The boolean result reports whether a configuration file was present. An absent
// file is not an error so callers can distinguish "never configured" from a
// corrupted or unreadable file.
func (store *Store) Load() (RepositoryConfiguration, bool, error) {
	if len(store.configurationFilePath) == 0 {
		return RepositoryConfiguration{}, false, ErrStorePathNotConfigured
	}

	configurationBytes, readError := os.ReadFile(store.configurationFilePath)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return RepositoryConfiguration{}, false, nil
		}
		return RepositoryConfiguration{}, false, fmt.Errorf(configurationReadErrorTemplateConstant, store.configurationFilePath, readError)
	}

	loadedConfiguration := RepositoryConfiguration{}
	unmarshalError := json.Unmarshal(configurationBytes, &loadedConfiguration)
	if unmarshalError != nil {
		return RepositoryConfiguration{}, true, fmt.Errorf(configurationParseErrorTemplateConstant, store.configurationFilePath, unmarshalError)
	}

	return store.normalize(loadedConfiguration), true, nil
}

// Save validates, normalizes, and atomically persists the configuration with owner-only permissions.
func (store *Store) Save(configuration RepositoryConfiguration) error {
	if len(store.configurationFilePath) == 0 {
		return ErrStorePathNotConfigured
	}

	normalizedConfiguration := store.normalize(configuration)
	validationError := Validate(normalizedConfiguration)
	if validationError != nil {
		return validationError
	}

	configurationBytes, marshalError := json.MarshalIndent(normalizedConfiguration, "", "  ")
	if marshalError != nil {
		return fmt.Errorf(configurationWriteErrorTemplateConstant, store.configurationFilePath, marshalError)
	}

	temporaryFilePath := store.configurationFilePath + temporaryFileSuffixConstant
	writeError := os.WriteFile(temporaryFilePath, configurationBytes, configurationFilePermissionsConstant)
	if writeError != nil {
		_ = os.Remove(temporaryFilePath)
		return fmt.Errorf(configurationWriteErrorTemplateConstant, temporaryFilePath, writeError)
	}

	renameError := os.Rename(temporaryFilePath, store.configurationFilePath)
	if renameError != nil {
		_ = os.Remove(temporaryFilePath)
		return fmt.Errorf(configurationRenameErrorTemplateConstant, store.configurationFilePath, renameError)
	}

	chmodError := os.Chmod(store.configurationFilePath, configurationFilePermissionsConstant)
	if chmodError != nil {
		return fmt.Errorf(configurationWriteErrorTemplateConstant, store.configurationFilePath, chmodError)
	}

	return nil
}

// Validate reports required fields that remain empty after normalization.
func Validate(configuration RepositoryConfiguration) error {
	missingFields := []string{}
	if len(strings.TrimSpace(configuration.GitHubToken)) == 0 {
		missingFields = append(missingFields, gitHubTokenFieldNameConstant)
	}
	if len(strings.TrimSpace(configuration.RepositoryOwner)) == 0 {
		missingFields = append(missingFields, repositoryOwnerFieldNameConstant)
	}
	if len(strings.TrimSpace(configuration.RepositoryName)) == 0 {
		missingFields = append(missingFields, repositoryNameFieldNameConstant)
	}
	if len(strings.TrimSpace(configuration.RepositoryURL)) == 0 {
		missingFields = append(missingFields, repositoryURLFieldNameConstant)
	}
	if len(missingFields) > 0 {
		return ValidationError{MissingFields: missingFields}
	}
	return nil
}

func (store *Store) normalize(configuration RepositoryConfiguration) RepositoryConfiguration {
	normalized := RepositoryConfiguration{
		GitHubToken:     strings.TrimSpace(configuration.GitHubToken),
		RepositoryOwner: strings.TrimSpace(configuration.RepositoryOwner),
		RepositoryName:  strings.TrimSpace(configuration.RepositoryName),
		RepositoryURL:   strings.TrimSpace(configuration.RepositoryURL),
		BranchName:      strings.TrimSpace(configuration.BranchName),
		LocalPath:       strings.TrimSpace(configuration.LocalPath),
		PostCommand:     strings.TrimSpace(configuration.PostCommand),
	}

	if len(normalized.BranchName) == 0 {
		normalized.BranchName = DefaultBranchName
	}

	if len(normalized.LocalPath) == 0 {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError == nil {
			normalized.LocalPath = workingDirectory
		}
	} else {
		normalized.LocalPath = store.homeExpander.Expand(normalized.LocalPath)
		if !filepath.IsAbs(normalized.LocalPath) {
			absolutePath, absoluteError := filepath.Abs(normalized.LocalPath)
			if absoluteError == nil {
				normalized.LocalPath = absolutePath
			}
		}
	}

	if len(normalized.RepositoryURL) == 0 && len(normalized.RepositoryOwner) > 0 && len(normalized.RepositoryName) > 0 {
		canonicalURL, formatError := gitrepo.FormatRemoteURL(gitrepo.RemoteURL{
			Protocol:   gitrepo.RemoteProtocolHTTPS,
			Host:       gitHubHostNameConstant,
			Owner:      normalized.RepositoryOwner,
			Repository: normalized.RepositoryName,
		})
		if formatError == nil {
			normalized.RepositoryURL = canonicalURL
		}
	}

	return normalized
}
