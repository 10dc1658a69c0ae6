package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")
	ErrTokenNotYetValid     = fmt.Errorf("токен ещё не активен")
	ErrTokenIsNotAccess     = fmt.Errorf("токен не является access-токеном")

	// Авторизация
	ErrEmptyAuthHeader   = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader = fmt.Errorf("неверный формат заголовка авторизации")
	ErrUnauthorized      = fmt.Errorf("неавторизован")

	// Контекст
	ErrUserIDNotFoundInContext = fmt.Errorf("UserID не найден в контексте запроса")

	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")

	// Жизненный цикл оборудования
	ErrInvalidTransition = fmt.Errorf("недопустимая смена статуса")
	ErrNotAvailable      = fmt.Errorf("оборудование недоступно для выдачи")
	ErrAlreadyReturned   = fmt.Errorf("оборудование уже возвращено")
	ErrConflict          = fmt.Errorf("конфликт данных")
	ErrConfiguration     = fmt.Errorf("ошибка конфигурации")
	ErrValidation        = fmt.Errorf("ошибка валидации")
)

// Kind возвращает стабильный код ошибки для клиента. Для DomainError
// решает его собственный вид, а не обёрнутая причина.
func Kind(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return kindOf(de.Kind)
	}
	return kindOf(err)
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrNotAvailable):
		return "NotAvailable"
	case errors.Is(err, ErrAlreadyReturned):
		return "AlreadyReturned"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest):
		return "ValidationError"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrEmptyAuthHeader), errors.Is(err, ErrInvalidAuthHeader), errors.Is(err, ErrTokenIsNotAccess):
		return "Unauthorized"
	}
	return "Internal"
}

// HTTPStatus сопоставляет ошибку ядра с HTTP-кодом.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "NotFound":
		return http.StatusNotFound
	case "InvalidTransition":
		return http.StatusUnprocessableEntity
	case "NotAvailable", "AlreadyReturned", "Conflict":
		return http.StatusConflict
	case "ValidationError":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// DomainError несёт вид ошибки, сообщение для пользователя и, при необходимости,
// список ID оборудования, из-за которых операция была отклонена.
type DomainError struct {
	Kind    error
	Message string
	IDs     []uint64
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func NewDomainError(kind error, message string, ids ...uint64) *DomainError {
	return &DomainError{Kind: kind, Message: message, IDs: ids}
}

func NotFound(format string, args ...interface{}) error {
	return NewDomainError(ErrNotFound, fmt.Sprintf(format, args...))
}

func InvalidTransition(format string, args ...interface{}) error {
	return NewDomainError(ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func NotAvailable(id uint64, status string) error {
	return NewDomainError(ErrNotAvailable, fmt.Sprintf("оборудование #%d в статусе «%s», выдача невозможна", id, status), id)
}

func AlreadyReturned(id uint64) error {
	return NewDomainError(ErrAlreadyReturned, fmt.Sprintf("у оборудования #%d нет открытой выдачи", id), id)
}

// Conflict перечисляет все ID, из-за которых операция отклонена.
func Conflict(ids []uint64, format string, args ...interface{}) error {
	return NewDomainError(ErrConflict, fmt.Sprintf(format, args...), ids...)
}

func Validation(format string, args ...interface{}) error {
	return NewDomainError(ErrValidation, fmt.Sprintf(format, args...))
}

// Configuration оборачивает ошибку отсутствия обязательного справочного значения.
func Configuration(err error, format string, args ...interface{}) error {
	return &DomainError{Kind: ErrConfiguration, Message: fmt.Sprintf(format, args...), Err: err}
}

// IDsOf извлекает список проблемных ID из ошибки, если он есть.
func IDsOf(err error) []uint64 {
	var de *DomainError
	if errors.As(err, &de) {
		return de.IDs
	}
	return nil
}

// MessageOf возвращает сообщение для пользователя.
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

type HttpError struct {
	Code    int
	Message string
	Err     error
	Context map[string]interface{}
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, context map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Context: context}
}

// FromDomain строит HttpError из ошибки ядра, сохраняя вид ошибки и список ID.
func FromDomain(err error) *HttpError {
	code := HTTPStatus(err)
	message := MessageOf(err)
	if code == http.StatusInternalServerError {
		message = "Внутренняя ошибка сервера"
		if errors.Is(err, ErrConfiguration) {
			message = MessageOf(err)
		}
	}
	details := map[string]interface{}{"kind": Kind(err)}
	if ids := IDsOf(err); len(ids) > 0 {
		details["ids"] = ids
	}
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}
