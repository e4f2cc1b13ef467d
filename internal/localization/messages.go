// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package localization

var EnglishMessages = map[string]string{
	"cli.root.short": "Interactive inspection and debugging toolkit for WebAssembly modules",
	"cli.debug.short":      "Load a WebAssembly module and start an interactive debug session",
	"cli.debug.flag.break": "set a breakpoint before starting (repeatable)",
	"cli.profile.short":    "Run a module to completion and record a pprof CPU profile",
	"cli.cache.short":      "Inspect or clear the on-disk DWARF analysis cache",

	"repl.loaded":            "Loaded %s. Type `run` to start, `quit` to exit.",
	"repl.prompt":            "(wasmdbg) ",
	"repl.unknown_command":   "unknown command: %s",
	"repl.breakpoint_hit":    "breakpoint hit: %s",
	"repl.terminated":        "module execution terminated",

	"error.read_module":       "cannot read %s",
	"error.load_module":       "failed to load module: %w",
	"error.function_not_found": "function not found: %s",
	"error.variable_not_found": "variable not found: %s",
	"error.memory_not_found":   "memory not found: %s",
	"error.invalid_state":      "invalid debugger state for this command",

	"output.breakpoints_set": "%d breakpoint(s) set",
	"output.cache_cleared":   "analysis cache cleared",
	"output.cache_empty":     "cache is empty",
}

var SpanishMessages = map[string]string{
	"cli.root.short": "Kit de inspección y depuración interactiva para módulos WebAssembly",
	"cli.debug.short":      "Cargar un módulo WebAssembly e iniciar una sesión de depuración interactiva",
	"cli.debug.flag.break": "establecer un punto de interrupción antes de iniciar (repetible)",
	"cli.profile.short":    "Ejecutar un módulo hasta completarlo y registrar un perfil de CPU pprof",
	"cli.cache.short":      "Inspeccionar o vaciar la caché de análisis DWARF en disco",

	"repl.loaded":          "Cargado %s. Escriba `run` para iniciar, `quit` para salir.",
	"repl.prompt":          "(wasmdbg) ",
	"repl.unknown_command": "comando desconocido: %s",
	"repl.breakpoint_hit":  "punto de interrupción alcanzado: %s",
	"repl.terminated":      "ejecución del módulo terminada",

	"error.read_module":        "no se puede leer %s",
	"error.load_module":        "error al cargar el módulo: %w",
	"error.function_not_found": "función no encontrada: %s",
	"error.variable_not_found": "variable no encontrada: %s",
	"error.memory_not_found":   "memoria no encontrada: %s",
	"error.invalid_state":      "estado de depurador inválido para este comando",

	"output.breakpoints_set": "%d punto(s) de interrupción establecidos",
	"output.cache_cleared":   "caché de análisis vaciada",
	"output.cache_empty":     "la caché está vacía",
}

var ChineseMessages = map[string]string{
	"cli.root.short": "WebAssembly 模块交互式检查与调试工具",
	"cli.debug.short":      "加载一个 WebAssembly 模块并启动交互式调试会话",
	"cli.debug.flag.break": "在启动前设置断点（可重复）",
	"cli.profile.short":    "运行模块至结束并记录 pprof CPU 性能分析",
	"cli.cache.short":      "查看或清除磁盘上的 DWARF 分析缓存",

	"repl.loaded":          "已加载 %s。输入 `run` 开始，输入 `quit` 退出。",
	"repl.prompt":          "(wasmdbg) ",
	"repl.unknown_command": "未知命令: %s",
	"repl.breakpoint_hit":  "命中断点: %s",
	"repl.terminated":      "模块执行已终止",

	"error.read_module":        "无法读取 %s",
	"error.load_module":        "加载模块失败: %w",
	"error.function_not_found": "未找到函数: %s",
	"error.variable_not_found": "未找到变量: %s",
	"error.memory_not_found":   "未找到内存: %s",
	"error.invalid_state":      "当前调试器状态不支持此命令",

	"output.breakpoints_set": "已设置 %d 个断点",
	"output.cache_cleared":   "分析缓存已清除",
	"output.cache_empty":     "缓存为空",
}

func init() {
	// English/Spanish/Chinese are always in supported, so this never fails;
	// loading eagerly means command Short/Long strings built from package
	// level var initializers (evaluated before PersistentPreRunE ever runs)
	// still resolve instead of falling back to the raw key.
	_ = LoadTranslations()
}

func LoadTranslations() error {
	if err := RegisterMessages(English, EnglishMessages); err != nil {
		return err
	}
	if err := RegisterMessages(Spanish, SpanishMessages); err != nil {
		return err
	}
	if err := RegisterMessages(Chinese, ChineseMessages); err != nil {
		return err
	}
	return nil
}
