package errors

import "strings"

// Human-readable messages shown to uploaders, keyed by code then language.
var messages = map[string]map[string]string{
	CodeEmptyInput: {
		"en": "The file contains no data rows.",
		"ar": "الملف لا يحتوي على أي صفوف بيانات.",
	},
	CodeEmptyDataset: {
		"en": "The dataset is empty.",
		"ar": "مجموعة البيانات فارغة.",
	},
	CodeNoColumns: {
		"en": "No columns were found in the file.",
		"ar": "لم يتم العثور على أعمدة في الملف.",
	},
	CodeEmptySheet: {
		"en": "The first sheet of the workbook has no data rows.",
		"ar": "الورقة الأولى في المصنف لا تحتوي على بيانات.",
	},
	CodeNoSheets: {
		"en": "The workbook contains no sheets.",
		"ar": "المصنف لا يحتوي على أي أوراق.",
	},
	CodeInvalidSyntax: {
		"en": "The file is not valid JSON.",
		"ar": "الملف ليس بصيغة JSON صالحة.",
	},
	CodeUnsupportedFormat: {
		"en": "This file type is not supported. Upload CSV, Excel or JSON.",
		"ar": "نوع الملف غير مدعوم. يرجى رفع ملف CSV أو Excel أو JSON.",
	},
	CodeInsightGeneration: {
		"en": "Insight generation failed.",
		"ar": "فشل توليد الرؤى التحليلية.",
	},
	CodeStoryGeneration: {
		"en": "Story generation failed.",
		"ar": "فشل توليد القصة.",
	},
	CodeNotFound: {
		"en": "The requested record was not found.",
		"ar": "السجل المطلوب غير موجود.",
	},
	CodeInvalidInput: {
		"en": "The request is invalid.",
		"ar": "الطلب غير صالح.",
	},
}

// DefaultLanguage is used when no supported language is requested.
const DefaultLanguage = "en"

// Localize returns the user-facing message for err in lang. Errors without a
// catalogued code fall back to err.Error().
func Localize(err error, lang string) string {
	if err == nil {
		return ""
	}
	byLang, ok := messages[GetCode(err)]
	if !ok {
		return err.Error()
	}
	if msg, ok := byLang[NormalizeLanguage(lang)]; ok {
		return msg
	}
	return byLang[DefaultLanguage]
}

// NormalizeLanguage reduces an Accept-Language style value ("ar-SA,ar;q=0.9")
// to a supported base language.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, ",;"); i >= 0 {
		lang = lang[:i]
	}
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	switch lang {
	case "ar", "en":
		return lang
	default:
		return DefaultLanguage
	}
}
