package utils

import (
	"strings"

	"github.com/duke-git/lancet/v2/random"
)

// RandomString 生成小写字母和数字组成的随机字符串
func RandomString(length int) string {
	if length <= 0 {
		return ""
	}
	return strings.ToLower(random.RandNumeralOrLetter(length))
}

// RandomInt 生成 [min, max] 范围内的随机整数
func RandomInt(min, max int) int {
	if min >= max {
		return min
	}
	return random.RandInt(min, max+1)
}

// MaskSecret 敏感值脱敏显示
func MaskSecret(value string) string {
	if value == "" {
		return ""
	}
	return "******"
}
