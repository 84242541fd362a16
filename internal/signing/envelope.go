package signing

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"net/textproto"
	"strings"

	"go.mozilla.org/pkcs7"

	"github.com/americanoutlaws/dubai/internal/domain/pass"
)

const (
	pkcs7PEMBlockType = "PKCS7"
	multipartSigned   = "multipart/signed"
)

var (
	errNoSignaturePart      = errors.New("no pkcs7-signature part in envelope")
	errUnterminatedEnvelope = errors.New("envelope has no closing boundary")
	errNotDetached          = errors.New("signature embeds content")
	errNoSigners            = errors.New("signature has no signer")
)

// NormalizeSignature returns the raw DER signature contained in data.
//
// DER input is returned unchanged. PEM ("PKCS7") and S/MIME multipart/signed
// envelopes are unwrapped by parsing their structure. The result must parse as
// a detached SignedData with at least one signer, otherwise
// pass.ErrSignatureEncoding is returned.
func NormalizeSignature(data []byte) ([]byte, error) {
	if err := validateDetached(data); err == nil {
		return data, nil
	}

	der, err := unwrap(data)
	if err != nil {
		return nil, fmt.Errorf("unwrap signature: %w: %w", pass.ErrSignatureEncoding, err)
	}

	if err = validateDetached(der); err != nil {
		return nil, fmt.Errorf("validate signature: %w: %w", pass.ErrSignatureEncoding, err)
	}

	return der, nil
}

// validateDetached checks that der is a SignedData with signers and no content.
func validateDetached(der []byte) error {
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return err
	}

	if len(p7.Content) > 0 {
		return errNotDetached
	}

	if len(p7.Signers) == 0 {
		return errNoSigners
	}

	return nil
}

// unwrap extracts the signature body from a PEM block or an S/MIME envelope.
func unwrap(data []byte) ([]byte, error) {
	if block, _ := pem.Decode(data); block != nil && block.Type == pkcs7PEMBlockType {
		return block.Bytes, nil
	}

	return extractSMIME(data)
}

// extractSMIME finds the application/(x-)pkcs7-signature part of a multipart/signed message.
// The first part is the signed content itself and is never parsed; OpenSSL writes it
// without any MIME headers in binary detached mode.
func extractSMIME(data []byte) ([]byte, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read envelope headers: %w", err)
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parse envelope content type: %w", err)
	}

	if mediaType != multipartSigned || params["boundary"] == "" {
		return nil, fmt.Errorf("unexpected envelope type %q", mediaType)
	}

	parts, err := splitParts(msg.Body, params["boundary"])
	if err != nil {
		return nil, err
	}

	if len(parts) < 2 {
		return nil, errNoSignaturePart
	}

	for _, part := range parts[1:] {
		reader := bufio.NewReader(bytes.NewReader(part))

		header, err := textproto.NewReader(reader).ReadMIMEHeader()
		if err != nil {
			return nil, fmt.Errorf("read envelope part headers: %w", err)
		}

		partType, _, err := mime.ParseMediaType(header.Get("Content-Type"))
		if err != nil || !isSignatureType(partType) {
			continue
		}

		body, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("read signature part: %w", err)
		}

		return decodeTransfer(header.Get("Content-Transfer-Encoding"), body)
	}

	return nil, errNoSignaturePart
}

// splitParts cuts a multipart body on its delimiter lines and returns the raw parts.
// The preamble and the epilogue are dropped.
func splitParts(body io.Reader, boundary string) ([][]byte, error) {
	var (
		delimiter      = []byte("--" + boundary)
		closeDelimiter = []byte("--" + boundary + "--")
		reader         = bufio.NewReader(body)
		parts          [][]byte
		current        *bytes.Buffer
	)

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := bytes.TrimRight(line, " \t\r\n")

			switch {
			case bytes.Equal(trimmed, delimiter):
				if current != nil {
					parts = append(parts, trimLineBreak(current.Bytes()))
				}

				current = new(bytes.Buffer)
			case bytes.Equal(trimmed, closeDelimiter):
				if current != nil {
					parts = append(parts, trimLineBreak(current.Bytes()))
				}

				return parts, nil
			case current != nil:
				current.Write(line)
			}
		}

		if errors.Is(err, io.EOF) {
			return nil, errUnterminatedEnvelope
		}

		if err != nil {
			return nil, fmt.Errorf("read envelope body: %w", err)
		}
	}
}

// trimLineBreak drops the line break that belongs to the following delimiter.
func trimLineBreak(part []byte) []byte {
	part = bytes.TrimSuffix(part, []byte("\n"))

	return bytes.TrimSuffix(part, []byte("\r"))
}

// isSignatureType reports whether mediaType denotes a PKCS#7 signature.
func isSignatureType(mediaType string) bool {
	return mediaType == "application/pkcs7-signature" || mediaType == "application/x-pkcs7-signature"
}

// decodeTransfer reverses the part Content-Transfer-Encoding.
func decodeTransfer(encoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(body)))
		if err != nil {
			return nil, fmt.Errorf("decode base64 signature: %w", err)
		}

		return decoded, nil
	case "", "binary", "8bit":
		return body, nil
	default:
		return nil, fmt.Errorf("unsupported transfer encoding %q", encoding)
	}
}
