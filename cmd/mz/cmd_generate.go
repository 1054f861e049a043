package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mzassist/internal/gateway"
	"mzassist/internal/types"
)

var (
	imageCount  int
	imageAspect string
	videoImage  string
	webStack    string
	webLanguage string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Creative generation tools (images, logos, videos, websites, slides, books)",
}

var generateImageCmd = &cobra.Command{
	Use:   "image [prompt]",
	Short: "Generate images from a text prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerateImage,
}

var generateLogoCmd = &cobra.Command{
	Use:   "logo [description]",
	Short: "Generate four logo variants",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerateLogo,
}

var generateVideoCmd = &cobra.Command{
	Use:   "video [prompt]",
	Short: "Generate a video (long-running; polls until done)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerateVideo,
}

var generateWebsiteCmd = &cobra.Command{
	Use:   "website [prompt]",
	Short: "Generate a complete single-file website",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerateWebsite,
}

var generateSlidesCmd = &cobra.Command{
	Use:   "slides [topic]",
	Short: "Generate a slide deck on a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerateSlides,
}

var generateBookCmd = &cobra.Command{
	Use:   "book [topic]",
	Short: "Draft a short book on a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerateBook,
}

var logoStyle string

func init() {
	generateImageCmd.Flags().IntVarP(&imageCount, "count", "n", 1, "Number of images (1-4)")
	generateImageCmd.Flags().StringVar(&imageAspect, "aspect", "1:1", "Aspect ratio (1:1, 16:9, 9:16, 4:3, 3:4)")
	generateLogoCmd.Flags().StringVar(&logoStyle, "style", "minimalist", "Logo style (minimalist, modern, vintage, ...)")
	generateVideoCmd.Flags().StringVar(&videoImage, "image", "", "Optional seed image file")
	generateWebsiteCmd.Flags().StringVar(&webStack, "stack", "html-css", "Tech stack (html-css, tailwind, react-tailwind)")
	generateWebsiteCmd.Flags().StringVar(&webLanguage, "language", "Arabic", "Content language")

	generateCmd.AddCommand(generateImageCmd)
	generateCmd.AddCommand(generateLogoCmd)
	generateCmd.AddCommand(generateVideoCmd)
	generateCmd.AddCommand(generateWebsiteCmd)
	generateCmd.AddCommand(generateSlidesCmd)
	generateCmd.AddCommand(generateBookCmd)
}

func runGenerateImage(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	prompt := strings.Join(args, " ")
	urls, err := rt.tools.CreateImages(cmd.Context(), prompt, imageCount, gateway.AspectRatio(imageAspect))
	if err != nil {
		return fmt.Errorf("%s", gateway.UserMessage(err))
	}
	return writeDataURLs(rt, urls, "image")
}

func runGenerateLogo(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	urls, err := rt.tools.CreateLogo(cmd.Context(), strings.Join(args, " "), logoStyle)
	if err != nil {
		return fmt.Errorf("%s", gateway.UserMessage(err))
	}
	return writeDataURLs(rt, urls, "logo")
}

func runGenerateVideo(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var seed *types.InlineImage
	if videoImage != "" {
		img, err := loadImageFile(videoImage)
		if err != nil {
			return err
		}
		seed = img
	}

	result, err := rt.tools.CreateVideo(cmd.Context(), strings.Join(args, " "), seed, func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("%s", gateway.UserMessage(err))
	}

	dir, err := rt.outputDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, timestampedName("video", ".mp4"))
	if err := os.WriteFile(path, result.Data, 0644); err != nil {
		return fmt.Errorf("failed to write video: %w", err)
	}
	fmt.Printf("Saved %s (%d bytes)\n", path, len(result.Data))
	return nil
}

func runGenerateWebsite(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	code, err := rt.tools.CreateWebsite(cmd.Context(), strings.Join(args, " "),
		types.WebTechStack(webStack), webLanguage)
	if err != nil {
		return fmt.Errorf("%s", gateway.UserMessage(err))
	}

	ext := ".html"
	if types.WebTechStack(webStack) == types.StackReactTailwind {
		ext = ".jsx"
	}
	dir, err := rt.outputDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, timestampedName("website", ext))
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return fmt.Errorf("failed to write website: %w", err)
	}
	fmt.Println("Saved", path)
	return nil
}

func runGenerateSlides(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	slides, err := rt.tools.CreateSlides(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("%s", gateway.UserMessage(err))
	}
	for i, slide := range slides {
		fmt.Printf("\n--- %d. %s ---\n%s\n", i+1, slide.Title, slide.Content)
	}
	return nil
}

func runGenerateBook(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	book, err := rt.tools.CreateBook(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("%s", gateway.UserMessage(err))
	}

	fmt.Printf("# %s\n(cover: %s)\n", book.Title, book.CoverQuery)
	for i, ch := range book.Chapters {
		fmt.Printf("\n## %d. %s\n\n%s\n", i+1, ch.Title, ch.Content)
	}
	return nil
}

var editPrompt string

var editImageCmd = &cobra.Command{
	Use:   "edit-image [file]",
	Short: "Edit an image with a natural-language instruction",
	Args:  cobra.ExactArgs(1),
	RunE:  runEditImage,
}

func init() {
	editImageCmd.Flags().StringVarP(&editPrompt, "prompt", "p", "", "Edit instruction (required)")
	editImageCmd.MarkFlagRequired("prompt")
}

func runEditImage(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	img, err := loadImageFile(args[0])
	if err != nil {
		return err
	}
	url, err := rt.tools.EditImage(cmd.Context(), *img, editPrompt)
	if err != nil {
		return fmt.Errorf("%s", gateway.UserMessage(err))
	}
	return writeDataURLs(rt, []string{url}, "edited")
}

var (
	quizType  string
	quizCount int
)

var quizCmd = &cobra.Command{
	Use:   "quiz [text or file]",
	Short: "Generate a quiz from source text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuiz,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [video-url]",
	Short: "Summarize and quiz the content of a video URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	quizCmd.Flags().StringVar(&quizType, "type", "multiple-choice", "Question type (multiple-choice, true-false)")
	quizCmd.Flags().IntVarP(&quizCount, "count", "n", 5, "Number of questions")
}

func runQuiz(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	text := strings.Join(args, " ")
	if data, err := os.ReadFile(args[0]); err == nil && len(args) == 1 {
		text = string(data)
	}

	quiz, err := rt.client.GenerateQuiz(cmd.Context(), text, types.QuizType(quizType), quizCount)
	if err != nil {
		return fmt.Errorf("%s", gateway.UserMessage(err))
	}
	printQuiz(quiz)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	analysis, err := rt.client.AnalyzeVideoURL(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s", gateway.UserMessage(err))
	}
	fmt.Println(analysis.Summary)
	if len(analysis.Quiz) > 0 {
		fmt.Println()
		printQuiz(analysis.Quiz)
	}
	return nil
}

func printQuiz(quiz []types.QuizQuestion) {
	for i, q := range quiz {
		fmt.Printf("%d. %s\n", i+1, q.Question)
		for _, opt := range q.Options {
			fmt.Printf("   - %s\n", opt)
		}
		fmt.Printf("   => %s\n", q.Answer)
	}
}

// writeDataURLs decodes base64 data URLs and writes each to a file in
// the creations output directory.
func writeDataURLs(rt *runtime, urls []string, prefix string) error {
	dir, err := rt.outputDir()
	if err != nil {
		return err
	}
	for i, url := range urls {
		payload := url
		ext := ".bin"
		if idx := strings.Index(url, ";base64,"); idx >= 0 {
			switch {
			case strings.HasPrefix(url, "data:image/jpeg"):
				ext = ".jpg"
			case strings.HasPrefix(url, "data:image/png"):
				ext = ".png"
			}
			payload = url[idx+len(";base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return fmt.Errorf("failed to decode image %d: %w", i, err)
		}
		path := filepath.Join(dir, timestampedName(fmt.Sprintf("%s_%d", prefix, i+1), ext))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Println("Saved", path)
	}
	return nil
}

// loadImageFile reads an image file into an inline image payload.
func loadImageFile(path string) (*types.InlineImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".webp":
		mime = "image/webp"
	}
	return &types.InlineImage{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: mime,
	}, nil
}
