package translate

import "fmt"

// systemPrompt returns the instruction used by the LLM engines for a live caption
func systemPrompt(sourceLang, targetLang string, censorProfanity bool) string {
	base := fmt.Sprintf(
		"You are a live caption translator. Translate the caption from %s to %s. "+
			"Keep the translation short and natural for on-screen display. "+
			"Respond with ONLY the translated caption, no quotes and no commentary.",
		langName(sourceLang), langName(targetLang),
	)
	if censorProfanity {
		base += " Replace profane words with asterisks of the same length."
	}
	return base
}

func langName(code string) string {
	names := map[string]string{
		"ko":   "Korean",
		"en":   "English",
		"ja":   "Japanese",
		"zh":   "Chinese",
		"es":   "Spanish",
		"fr":   "French",
		"de":   "German",
		"pt":   "Portuguese",
		"it":   "Italian",
		"ru":   "Russian",
		"ar":   "Arabic",
		"hi":   "Hindi",
		"th":   "Thai",
		"vi":   "Vietnamese",
		"id":   "Indonesian",
		"":     "auto-detected language",
		"auto": "auto-detected language",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
