// Package validator checks downloaded invoice documents before they are parsed.
package validator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

// zipMagic starts every OOXML workbook.
var zipMagic = []byte("PK\x03\x04")

// DocumentValidator rejects content that cannot be an invoice workbook.
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

type ValidatorConfig struct {
	MaxFileSize int64
	// RejectedExtensions names formats the workbook reader cannot open. Any other
	// name, with or without a dot in it, is judged by content alone.
	RejectedExtensions []string
}

type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
}

func NewDocumentValidator(log logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if config == nil {
		config = &ValidatorConfig{}
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = 20 * 1024 * 1024
	}
	if len(config.RejectedExtensions) == 0 {
		config.RejectedExtensions = []string{".xls", ".xlsb", ".ods", ".csv", ".pdf"}
	}
	return &DocumentValidator{logger: log, config: config}
}

// Validate inspects the raw bytes of a document named name.
func (v *DocumentValidator) Validate(name string, data []byte) *ValidationResult {
	sum := sha256.Sum256(data)
	result := &ValidationResult{
		IsValid: true,
		FileInfo: FileInfo{
			Filename:  name,
			Size:      int64(len(data)),
			MimeType:  http.DetectContentType(data),
			Extension: strings.ToLower(filepath.Ext(name)),
			Hash:      hex.EncodeToString(sum[:]),
		},
	}

	if len(data) == 0 {
		result.add("EMPTY_FILE", "File is empty", "size")
	}
	if result.FileInfo.Size > v.config.MaxFileSize {
		result.add("FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum limit of %d bytes", v.config.MaxFileSize), "size")
	}
	if ext := result.FileInfo.Extension; ext != "" && v.rejected(ext) {
		result.add("INVALID_FILE_TYPE", fmt.Sprintf("File type %s is not allowed", ext), "extension")
	}
	if len(data) > 0 && !bytes.HasPrefix(data, zipMagic) {
		result.add("INVALID_MIME_TYPE",
			fmt.Sprintf("Content of type %s is not a workbook", result.FileInfo.MimeType), "mimeType")
	}

	if !result.IsValid {
		v.logger.Debug("Document failed validation",
			logger.String("name", name),
			logger.String("hash", result.FileInfo.Hash),
			logger.Any("errors", result.Errors),
		)
	}
	return result
}

// Check is Validate reduced to a parse error, or nil when the document is valid.
func (v *DocumentValidator) Check(name string, data []byte) error {
	r := v.Validate(name, data)
	if r.IsValid {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return apperr.Parse("validate "+name, errors.New(strings.Join(msgs, "; ")))
}

func (v *DocumentValidator) rejected(ext string) bool {
	for _, a := range v.config.RejectedExtensions {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

func (r *ValidationResult) add(code, msg, field string) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{Code: code, Message: msg, Field: field})
}
