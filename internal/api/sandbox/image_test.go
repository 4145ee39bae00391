package sandbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateImagePayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "whisk:generateImage") {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer ya29.tok" {
			t.Errorf("Authorization: got %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{
			"workflowId": "wf_1",
			"imagePanels": [{"generatedImages": [{
				"encodedImage": "aGVsbG8=",
				"seed": 123456,
				"mediaGenerationId": "mg_1",
				"prompt": "a red fox"
			}]}]
		}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).GenerateImage(context.Background(), "ya29.tok", GenerateImageRequest{
		WorkflowID:  "wf_1",
		Prompt:      "a red fox",
		AspectRatio: "3:4",
		Seed:        123456,
	})
	if !res.Success {
		t.Fatalf("GenerateImage failed: %s", res.Message)
	}

	settings := got["imageModelSettings"].(map[string]any)
	if settings["aspectRatio"] != "IMAGE_ASPECT_RATIO_THREE_FOUR" {
		t.Errorf("aspectRatio: got %v", settings["aspectRatio"])
	}
	if settings["imageModel"] != DefaultImageModel {
		t.Errorf("imageModel: got %v", settings["imageModel"])
	}
	if got["mediaCategory"] != "MEDIA_CATEGORY_BOARD" {
		t.Errorf("mediaCategory: got %v", got["mediaCategory"])
	}
	if got["seed"].(float64) != 123456 {
		t.Errorf("seed: got %v", got["seed"])
	}
	cc := got["clientContext"].(map[string]any)
	if cc["tool"] != "BACKBONE" || cc["workflowId"] != "wf_1" {
		t.Errorf("clientContext: %v", cc)
	}

	if res.Data.Get("encodedImage").String() != "aGVsbG8=" {
		t.Errorf("encodedImage: got %q", res.Data.Get("encodedImage").String())
	}
	if res.Data.Get("mediaGenerationId").String() != "mg_1" {
		t.Errorf("mediaGenerationId: got %q", res.Data.Get("mediaGenerationId").String())
	}
	if res.Data.Get("seed").Int() != 123456 {
		t.Errorf("seed: got %d", res.Data.Get("seed").Int())
	}
}

func TestGenerateImageRandomSeedRange(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"imagePanels": [{"generatedImages": [{"encodedImage": "eA=="}]}]}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).GenerateImage(context.Background(), "tok", GenerateImageRequest{
		WorkflowID: "wf", Prompt: "p",
	})
	if !res.Success {
		t.Fatalf("GenerateImage failed: %s", res.Message)
	}
	seed := int(got["seed"].(float64))
	if seed < 100000 || seed > 999999 {
		t.Errorf("default seed out of range: %d", seed)
	}
}

func TestGenerateImageNoPanels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"imagePanels": []}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).GenerateImage(context.Background(), "tok", GenerateImageRequest{
		WorkflowID: "wf", Prompt: "p",
	})
	if res.Success {
		t.Fatal("empty imagePanels must fail")
	}
	if res.Message != "No imagePanels in response" {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestGenerateImageNoImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"imagePanels": [{"generatedImages": []}]}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).GenerateImage(context.Background(), "tok", GenerateImageRequest{
		WorkflowID: "wf", Prompt: "p",
	})
	if res.Success {
		t.Fatal("empty generatedImages must fail")
	}
	if res.Message != "No generatedImages in response" {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestImageAspectRatioMap(t *testing.T) {
	cases := map[string]string{
		"16:9":  "IMAGE_ASPECT_RATIO_LANDSCAPE",
		"9:16":  "IMAGE_ASPECT_RATIO_PORTRAIT",
		"1:1":   "IMAGE_ASPECT_RATIO_SQUARE",
		"4:3":   "IMAGE_ASPECT_RATIO_FOUR_THREE",
		"3:4":   "IMAGE_ASPECT_RATIO_THREE_FOUR",
		"weird": "IMAGE_ASPECT_RATIO_LANDSCAPE",
	}
	for in, want := range cases {
		if got := ImageAspectRatio(in); got != want {
			t.Errorf("ImageAspectRatio(%q) = %q, want %q", in, got, want)
		}
	}
}
