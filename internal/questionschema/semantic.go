package questionschema

import (
	"encoding/json"
	"fmt"
	"strings"
)

func number(config map[string]interface{}, key string) (float64, bool) {
	value, ok := config[key].(float64)
	return value, ok
}

func checkMCQ(config map[string]interface{}) []string {
	options, _ := config["options"].(map[string]interface{})
	for _, raw := range options {
		option, _ := raw.(map[string]interface{})
		if correct, _ := option["correct"].(bool); correct {
			return nil
		}
	}
	return []string{"at least one option must be marked correct"}
}

func checkEssay(config map[string]interface{}) []string {
	minWords, hasMin := number(config, "minWords")
	maxWords, hasMax := number(config, "maxWords")
	if hasMin && hasMax && minWords >= maxWords {
		return []string{"minimum words must be less than maximum words"}
	}
	return nil
}

func checkFillInBlank(config map[string]interface{}) []string {
	blanks, _ := config["blanks"].([]interface{})
	if expected, ok := number(config, "blankCount"); ok && int(expected) != len(blanks) {
		return []string{fmt.Sprintf("blankCount %d does not match %d configured blanks", int(expected), len(blanks))}
	}
	return nil
}

func checkMatching(config map[string]interface{}) []string {
	pairs, _ := config["pairs"].([]interface{})
	var problems []string
	for i, raw := range pairs {
		pair, _ := raw.(map[string]interface{})
		populated := false
		for c := 1; c <= 4; c++ {
			if text, _ := pair[fmt.Sprintf("column_%d", c)].(string); strings.TrimSpace(text) != "" {
				populated = true
				break
			}
		}
		if !populated {
			problems = append(problems, fmt.Sprintf("pair %d must have at least one non-empty column", i+1))
		}
	}
	return problems
}

func checkRearrange(config map[string]interface{}) []string {
	items, _ := config["correctOrder"].([]interface{})
	if expected, ok := number(config, "itemCount"); ok && int(expected) != len(items) {
		return []string{fmt.Sprintf("itemCount %d does not match %d items", int(expected), len(items))}
	}
	return nil
}

func checkSlider(config map[string]interface{}) []string {
	minValue, _ := number(config, "minValue")
	maxValue, _ := number(config, "maxValue")
	correctValue, _ := number(config, "correctValue")

	var problems []string
	if minValue >= maxValue {
		problems = append(problems, "minValue must be less than maxValue")
	} else if correctValue < minValue || correctValue > maxValue {
		problems = append(problems, "correctValue must be within the min-max range")
	}
	if answerType, _ := config["answerType"].(string); answerType == "withData" {
		left, _ := config["leftAnswer"].(string)
		right, _ := config["rightAnswer"].(string)
		if strings.TrimSpace(left) == "" || strings.TrimSpace(right) == "" {
			problems = append(problems, "withData sliders need non-empty leftAnswer and rightAnswer")
		}
	}
	return problems
}

func checkSelectOnPhoto(config map[string]interface{}) []string {
	blocks, _ := config["selectedBlocks"].([]interface{})
	rows, _ := number(config, "gridRows")
	cols, _ := number(config, "gridCols")
	if len(blocks) > int(rows*cols) {
		return []string{fmt.Sprintf("%d selected blocks exceed the %dx%d grid", len(blocks), int(rows), int(cols))}
	}
	return nil
}

func codingCheck(languages map[string]struct{}) func(map[string]interface{}) []string {
	return func(config map[string]interface{}) []string {
		var problems []string
		language, _ := config["language"].(string)
		if _, ok := languages[strings.ToLower(strings.TrimSpace(language))]; len(languages) > 0 && !ok {
			problems = append(problems, fmt.Sprintf("language %q is not supported", language))
		}

		encoded, isString := config["testCases"].(string)
		if !isString {
			return problems
		}
		var cases []map[string]interface{}
		if err := json.Unmarshal([]byte(encoded), &cases); err != nil {
			return append(problems, "testCases must be a JSON array")
		}
		if len(cases) == 0 || len(cases) > 20 {
			return append(problems, "testCases must contain between 1 and 20 entries")
		}
		for i, testCase := range cases {
			input, _ := testCase["input"].(string)
			output, _ := testCase["output"].(string)
			if output == "" {
				output, _ = testCase["expectedOutput"].(string)
			}
			if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
				problems = append(problems, fmt.Sprintf("test case %d needs non-empty input and output", i+1))
			}
		}
		return problems
	}
}
