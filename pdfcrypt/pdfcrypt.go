// Package pdfcrypt moves documents out of the encrypted state.  Decryption
// supports the Standard security handler (RC4 and AES, revisions 2 through
// 6).  Encryption is not supported; Encrypt always fails.
package pdfcrypt

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

// ErrInvalidPassword is the cause of a DecryptError when the password is
// neither the user nor the owner password.
var ErrInvalidPassword = errors.New("invalid password")

// ErrEncryptUnsupported is returned by Encrypt.
var ErrEncryptUnsupported = errors.New("encrypt is not supported; only decrypt is")

// DecryptError is returned when an encrypted document cannot be decrypted.
type DecryptError struct {
	Err error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("decrypt failed: %v", e.Err)
}

func (e *DecryptError) Unwrap() error {
	return e.Err
}

// IsEncrypted returns whether doc is encrypted.
func IsEncrypted(doc *pdfstruct.Document) bool {
	return doc.IsEncrypted()
}

// Decrypt decrypts doc in place.  A nil password means the empty password.
// Decrypt does nothing to a document that is not encrypted.  Any error
// returned is a *DecryptError.
func Decrypt(doc *pdfstruct.Document, password *string) error {
	var pw string

	if !doc.IsEncrypted() {
		return nil
	}
	if password != nil {
		pw = *password
	}
	if err := DecryptInPlace(doc, pw); err != nil {
		return &DecryptError{Err: err}
	}
	return nil
}

// DecryptFile loads input, decrypts it if it is encrypted, and saves the
// result to output.  Nothing is written to output unless every step succeeds.
func DecryptFile(input, output string, password *string) error {
	return DecryptFileWith(input, output, password, pdfstruct.SaveOptions{})
}

// DecryptFileWith is DecryptFile with explicit save options.
func DecryptFileWith(input, output string, password *string, opts pdfstruct.SaveOptions) (err error) {
	var doc *pdfstruct.Document

	if doc, err = pdfstruct.Load(input); err != nil {
		return err
	}
	wasEncrypted := doc.IsEncrypted()
	if err = Decrypt(doc, password); err != nil {
		return err
	}
	if err = doc.SaveWith(output, opts); err != nil {
		return err
	}
	slog.Info("decrypted", "input", input, "output", output, "was_encrypted", wasEncrypted)
	return nil
}

// Encrypt would write an encrypted copy of input to output.  It always
// returns ErrEncryptUnsupported and never touches output.
func Encrypt(input, output, userPassword string, ownerPassword *string) error {
	return ErrEncryptUnsupported
}

// IsEncryptedFile loads the file at path and reports whether it is encrypted.
func IsEncryptedFile(path string) (bool, error) {
	doc, err := pdfstruct.Load(path)
	if err != nil {
		return false, err
	}
	return doc.IsEncrypted(), nil
}
