package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate        *validator.Validate
	usernamePattern = regexp.MustCompile("^[a-zA-Z0-9_]+$")
)

// InitValidator 初始化验证器，并把自定义规则注册到gin的绑定引擎
func InitValidator() {
	validate = validator.New()
	registerCustom(validate)

	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustom(engine)
	}
}

func registerCustom(v *validator.Validate) {
	v.RegisterValidation("username", validateUsername)
	v.RegisterValidation("password", validatePassword)
	v.RegisterValidation("review_result", validateReviewResult)
}

// GetValidator 获取验证器实例
func GetValidator() *validator.Validate {
	if validate == nil {
		InitValidator()
	}
	return validate
}

// validateUsername 验证用户名
func validateUsername(fl validator.FieldLevel) bool {
	username := fl.Field().String()
	if len(username) < 3 || len(username) > 50 {
		return false
	}
	return usernamePattern.MatchString(username)
}

// validatePassword 至少8位，同时包含字母和数字
func validatePassword(fl validator.FieldLevel) bool {
	return PasswordStrong(fl.Field().String())
}

// PasswordStrong 检查密码强度
func PasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// validateReviewResult 审核结论只能是 ACCEPT 或 REJECT，不区分大小写
func validateReviewResult(fl validator.FieldLevel) bool {
	switch strings.ToUpper(fl.Field().String()) {
	case "ACCEPT", "REJECT":
		return true
	}
	return false
}

// ValidateStruct 验证结构体
func ValidateStruct(s interface{}) error {
	v := GetValidator()
	if err := v.Struct(s); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// FormatValidationError 格式化验证错误
func FormatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		param := e.Param()

		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("%s是必填字段", field)
		case "min":
			message = fmt.Sprintf("%s长度不能小于%s", field, param)
		case "max":
			message = fmt.Sprintf("%s长度不能大于%s", field, param)
		case "oneof":
			message = fmt.Sprintf("%s必须是以下值之一: %s", field, param)
		case "username":
			message = fmt.Sprintf("%s只能包含字母、数字和下划线，长度3-50", field)
		case "password":
			message = fmt.Sprintf("%s至少8位，且必须同时包含字母和数字", field)
		case "review_result":
			message = fmt.Sprintf("%s必须是 ACCEPT 或 REJECT", field)
		default:
			message = fmt.Sprintf("%s验证失败: %s", field, e.Tag())
		}
		messages = append(messages, message)
	}

	return errors.New(strings.Join(messages, "; "))
}
