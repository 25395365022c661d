package embedded

import (
	_ "embed"
)

// Embed all prompt data files
//
//go:embed data/prompts/system_base.txt
var SystemBaseTxt []byte

//go:embed data/prompts/tone_emotional.txt
var ToneEmotionalTxt []byte

//go:embed data/prompts/tone_casual.txt
var ToneCasualTxt []byte

//go:embed data/prompts/tone_professional.txt
var ToneProfessionalTxt []byte
