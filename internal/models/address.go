package models

import (
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrInvalidPostalCode 邮编格式错误
	ErrInvalidPostalCode = errors.New("invalid postal code")
	// ErrInvalidState 州缩写格式错误
	ErrInvalidState = errors.New("invalid state")
)

// DeliveryAddress 收货地址
type DeliveryAddress struct {
	PostalCode   string `json:"postal_code"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"` // 两位州缩写
}

// PostalDigits 返回邮编中的数字部分（忽略连字符与空格）
func (a DeliveryAddress) PostalDigits() string {
	var b strings.Builder
	for _, r := range a.PostalCode {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FirstPostalDigit 邮编首位数字，无法识别时返回 false
func (a *DeliveryAddress) FirstPostalDigit() (byte, bool) {
	if a == nil {
		return 0, false
	}
	trimmed := strings.TrimSpace(a.PostalCode)
	if trimmed == "" {
		return 0, false
	}
	first := trimmed[0]
	if first < '0' || first > '9' {
		return 0, false
	}
	return first, true
}

// Validate 校验邮编与州缩写
func (a DeliveryAddress) Validate() error {
	if len(a.PostalDigits()) != 8 {
		return ErrInvalidPostalCode
	}
	for _, r := range strings.TrimSpace(a.PostalCode) {
		if !unicode.IsDigit(r) && r != '-' {
			return ErrInvalidPostalCode
		}
	}
	state := strings.TrimSpace(a.State)
	if len(state) != 2 {
		return ErrInvalidState
	}
	for _, r := range state {
		if !unicode.IsLetter(r) {
			return ErrInvalidState
		}
	}
	return nil
}
