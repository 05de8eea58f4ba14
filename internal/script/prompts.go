package script

const closingCallToAction = "Close out the video by thanking the viewer for watching, asking them to like the video, and asking them to subscribe to our channel."

var systemPrompts = map[Kind]string{
	KindExplainer: "Your task is to write a script for an explainer video. Represent the script in json format. " +
		"The video will be a slideshow with AI generated images and TTS voiceover. Be sure to include interesting facts throughout the video. " +
		"Use the keys title and script. script is a list of objects, each with the keys 'image_description' and 'voiceover'. " +
		"Each voiceover section should be about 30 to 60 seconds in length. The goal is to accompany each section of voiceover with a unique image related to the voiceover. " +
		"The video should be suitable for audiences of all ages. " + closingCallToAction,
	KindListicle: "Your task is to write a script for a listicle video. Represent the script in json format. " +
		"The video will be a slideshow with AI generated images and TTS voiceover. " +
		"Use the keys title and script. script is a list of objects, each with the keys 'image_description' and 'voiceover'. " +
		"The goal is to accompany each section of voiceover with a unique image related to the voiceover. " + closingCallToAction,
	KindHaiku: "Your task is to write a script for a haiku video. Represent the script in json format. " +
		"The video will be a slideshow with AI generated images and TTS voiceover. " +
		"Use the keys title and script. script is a list of objects, each with the keys 'image_description' and 'voiceover'. " +
		"The entire haiku should be a single voiceover with a single image description. Terminate each line of the haiku with '[pause]' to represent a pause. " +
		"Provide only the haiku, nothing else. Adhere to the haiku poem format.",
}

var userPrompts = map[Kind]string{
	KindExplainer: "Write an explainer video about %s.",
	KindListicle:  "Write a listicle about %s.",
	KindHaiku:     "Write a haiku video about %s.",
}

const reviseSystem = `You will be provided with a draft script for a YouTube video.
Transform the script into a structured json output with the keys 'title' and 'script'.
'script' should be a list of objects with the keys 'voiceover' and 'image_description', where voiceover is the revised script and image_description describes an image to accompany the voiceover.
Stay true to the spirit of the original draft. Editor instructions are inside triple braces.
Guidelines for image descriptions:
- The description should be detailed and self contained.
- Never refer to other image descriptions or other sections of the script. The image generator sees each description on its own.
- Avoid images of 'The Host', 'The YouTuber', 'The Narrator', or 'The AI'. There is no character associated with the video.
Your output will be fed into a text to speech generator and a text to image generator.`

const outlineSystem = `Your job is to write an outline for a YouTube video based on the topic provided by the user.
Include a reminder that the script, voiceover, and images for this video are entirely AI generated.
Include a reminder that the AI generated images are not factually accurate.
The video should be 10-15 minutes long.
Optimize the outline content for SEO and engagement.
Include a call to action section at the end of the video, reminding viewers to like, comment, and subscribe.
The outline should be a json object. The top level keys are 'title' and 'sections'.
The 'sections' key should have a list of objects. Each object should have a 'title' and 'writing_prompt' key.
If there are subsections, the object should have a 'title' and 'items' key.
The 'items' key should have a list of objects with a 'title' and 'writing_prompt' key.`

const sectionSystem = `Your job is to write a script for a portion of a YouTube video.
Each section of voiceover should be accompanied by a single image.
Optimize the script for SEO and engagement.
Your response should be a json object with the key 'section'.
Each object in 'section' should have the keys 'voiceover' and 'image_description'.
Do not wrap up the video unless the section is titled 'Conclusion' or 'Outro'.`

const (
	outlineTemperature = 1.1
	sectionTemperature = 0.7
)
