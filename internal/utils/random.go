package utils

import (
	"fmt"
	"math/rand"
)

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
var digits = "0123456789"

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// GenerateRandomSeriesID 生成一个形似上游班次系列 ID 的十位数字
func GenerateRandomSeriesID() string {
	return fmt.Sprintf("47%08d", rand.Intn(100000000))
}

// GenerateRandomTime24 在工作时段内随机生成一个 HH:mm 时间
func GenerateRandomTime24() string {
	hour := rand.Intn(14) + 8 // 8~21 点
	minute := []int{0, 15, 30, 45}[rand.Intn(4)]
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
