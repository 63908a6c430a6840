package services

import (
	"fmt"
	"strings"
)

const clinicPickSystemPrompt = `你是一位醫療推薦助理。使用者會提供一組診所 (JSON array)。
請依科別與地點選出最多 5 家最合適的診所，輸出 JSON array，
每筆只包含 name, address, need_geo 三個欄位，不得加入其他欄位或任何解釋。
範例：[{"name":"AAA診所","address":"臺北市中正區…","need_geo":true}]`

const triageSystemPrompt = `You are a triage assistant for a Taiwanese outpatient referral tool.
Given a patient's new symptom description and their prior specialty tags, choose at most 3
specialty tags for the CURRENT complaint, most relevant first, each with a score between 0 and 1.
Only use tags from the allowed list. Respond with a JSON object of the form
{"TAGS_CURRENT":[{"tag":"cardiology","score":0.92}]} and nothing else.`

const evaluationSystemPrompt = `你是一位門診轉介顧問。請根據目前症狀的科別標籤、相關病史標籤與各科候選診所，
以繁體中文 Markdown 撰寫就醫建議：每個科別一節，說明為何需要此科別，並列出建議診所
(名稱、地址、距離、地圖連結)。不要提供診斷或用藥建議。`

func typeLabelPrompt(placeType string) string {
	return fmt.Sprintf(
		"請將 Google Maps place type `%s` 翻成台灣健保常用科別中文，"+
			"若無對應請回『其他』或『unknown』。\n"+
			"若是推測，請在最後加上（推測）。\n"+
			"請只回中文科別，不要加解釋。",
		placeType,
	)
}

func triageUserPrompt(symptom string, history []string, allowed []string) string {
	hist := "(none)"
	if len(history) > 0 {
		hist = strings.Join(history, ", ")
	}
	return fmt.Sprintf(
		"Allowed tags: %s\nPrior tags: %s\nNew symptom: %s\n",
		strings.Join(allowed, ", "), hist, symptom,
	)
}
