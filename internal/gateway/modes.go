package gateway

import (
	"mzassist/internal/types"
)

// System-level instructions per response mode. The assistant persona is
// "MZ" and replies in Arabic.
const (
	instructionDefault = "أنت مساعد ذكاء اصطناعي ودود ومبدع يُدعى 'MZ'. يجب أن تكون إجاباتك دقيقة ومفصلة ومفيدة باللغة العربية. استخدم الرموز التعبيرية (الإيموجي) بشكل مناسب لإضفاء طابع ودي وجذاب على المحادثة."

	instructionGoogleSearch = "أنت مساعد ذكاء اصطناعي مفيد يُدعى 'MZ'. لغتك الأساسية هي العربية. عند استخدام بحث جوجل، يجب عليك ذكر مصادرك. قم بتنسيق الاقتباسات في نهاية إجابتك. أنت لست نقطة نهاية JSON."

	instructionQuickResponse = "أنت 'MZ'. قدم إجابات سريعة وموجزة ومباشرة باللغة العربية. كن مختصرًا. استخدم الرموز التعبيرية عند الاقتضاء."

	instructionLearning = "أنت 'MZ' في وضع التعلم. يقوم المستخدم بتزويدك بمعلومات لتتذكرها في هذه المحادثة. أقر بأنك تلقيت المعلومات وسوف تتذكرها. قم بتأكيد ما تعلمته بإيجاز في جملة واحدة باللغة العربية."
)

// systemInstructionFor maps a chat mode to its system instruction.
// Exhaustive over the closed mode set; unknown modes fall back to default.
func systemInstructionFor(mode types.ChatMode) string {
	switch mode {
	case types.ModeGoogleSearch:
		return instructionGoogleSearch
	case types.ModeQuickResponse:
		return instructionQuickResponse
	case types.ModeLearning:
		return instructionLearning
	case types.ModeDefault:
		return instructionDefault
	}
	return instructionDefault
}
