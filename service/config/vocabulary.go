/*
 * @module service/config/vocabulary
 * @description 映射表文件加载，支持 YAML 与 JSON
 * @architecture 配置层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 读取文件 -> 按扩展名解析 -> 校验 -> cleaning.Vocabulary
 * @rules 路径为空时使用默认映射表；校验失败时拒绝启动
 * @dependencies gopkg.in/yaml.v3, github.com/go-playground/validator/v10
 * @refs service/cleaning/vocabulary.go, service/init.go
 */

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"customer-cleanser/service/cleaning"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LoadVocabulary 读取映射表文件（.json / .yaml / .yml），路径为空时返回默认映射
func LoadVocabulary(path string) (cleaning.Vocabulary, error) {
	if path == "" {
		return cleaning.DefaultVocabulary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cleaning.Vocabulary{}, fmt.Errorf("读取映射表文件失败: %w", err)
	}

	var vocab cleaning.Vocabulary
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &vocab)
	default:
		err = json.Unmarshal(data, &vocab)
	}
	if err != nil {
		return cleaning.Vocabulary{}, fmt.Errorf("解析映射表文件 %s 失败: %w", path, err)
	}

	if err := ValidateVocabulary(vocab); err != nil {
		return cleaning.Vocabulary{}, err
	}
	return vocab, nil
}

// ValidateVocabulary 校验映射表结构
func ValidateVocabulary(vocab cleaning.Vocabulary) error {
	if err := validate.Struct(vocab); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}
