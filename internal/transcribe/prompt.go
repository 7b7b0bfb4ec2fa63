package transcribe

// Prompt instructs the speech model to emit one "[MM:SS] text" line per
// spoken segment.
const Prompt = `Please transcribe this audio recording with timestamps. Format your response as:

[MM:SS] Transcript text here
[MM:SS] Next segment of speech

For example:
[00:03] This login button is broken when I click it
[00:08] The search feature isn't working properly
[00:15] Can you add a dark mode option please

Include timestamps for each distinct topic or issue mentioned. If there is no speech or the audio is silent, respond with '[No speech detected]'.`

// AudioMIMEType is the content type of the extracted PCM track.
const AudioMIMEType = "audio/wav"
