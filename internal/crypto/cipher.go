package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// NonceSize - размер nonce для AES-GCM (12 bytes стандартный размер)
	NonceSize = 12
	// KeySize - длина ключа шифрования в байтах (AES-256)
	KeySize = 32
)

// Фиксированный passphrase для шифрования токена at-rest.
// Это НЕ security boundary: ключ поставляется вместе с клиентом и защищает
// только от случайного просмотра файла хранилища. Настоящая защита токена -
// его срок жизни на сервере.
const (
	atRestPassphrase = "sliceops-console-at-rest-v1"
	atRestSalt       = "sliceops.local.storage"
	pbkdf2Iterations = 4096
)

// atRestKey деривируется один раз при старте процесса
var atRestKey = pbkdf2.Key([]byte(atRestPassphrase), []byte(atRestSalt), pbkdf2Iterations, KeySize, sha256.New)

// Encrypt шифрует данные с использованием AES-256-GCM
// Формат результата: nonce (12 bytes) + ciphertext + auth_tag (16 bytes)
func Encrypt(plaintext, key []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("plaintext cannot be empty")
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Генерируем случайный nonce
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// GCM автоматически добавляет authentication tag в конец
	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	result := make([]byte, 0, len(nonce)+len(ciphertext))
	result = append(result, nonce...)
	result = append(result, ciphertext...)

	return result, nil
}

// Decrypt дешифрует данные, зашифрованные с помощью Encrypt
// Ожидает формат: nonce (12 bytes) + ciphertext + auth_tag (16 bytes)
func Decrypt(encrypted, key []byte) ([]byte, error) {
	if len(encrypted) < NonceSize {
		return nil, fmt.Errorf("encrypted data too short")
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Извлекаем nonce из первых 12 bytes
	nonce := encrypted[:NonceSize]
	ciphertext := encrypted[NonceSize:]

	// Дешифруем и проверяем authentication tag
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: authentication failed or corrupted data: %w", err)
	}

	return plaintext, nil
}

// EncryptAtRest шифрует строку фиксированным ключом и возвращает Base64.
// Используется только для обфускации значений в локальном хранилище.
func EncryptAtRest(plaintext string) (string, error) {
	encrypted, err := Encrypt([]byte(plaintext), atRestKey)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// DecryptAtRest расшифровывает Base64-строку, зашифрованную EncryptAtRest.
// Fail-soft контракт: на любом повреждённом или чужом ciphertext возвращает
// пустую строку, ошибок наружу не отдаёт. Вызывающий трактует "" как
// отсутствие значения.
func DecryptAtRest(ciphertext string) string {
	if ciphertext == "" {
		return ""
	}

	encrypted, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ""
	}

	plaintext, err := Decrypt(encrypted, atRestKey)
	if err != nil {
		return ""
	}

	return string(plaintext)
}

// IsValidCiphertext проверяет, что строка структурно расшифровывается
// фиксированным ключом. Валидность токена на сервере не проверяется.
func IsValidCiphertext(ciphertext string) bool {
	return DecryptAtRest(ciphertext) != ""
}
